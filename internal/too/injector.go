package too

import "sort"

// Injector hands the simulation the events that are live at a given time.
// Immutable after construction; safe for concurrent reads.
type Injector struct {
	events  EventTable // sorted by MJDStart
	maxSpan float64
}

// NewInjector indexes a table for lookup by time.
func NewInjector(table EventTable) *Injector {
	events := append(EventTable(nil), table...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].MJDStart < events[j].MJDStart })

	var span float64
	for _, e := range events {
		span = max(span, e.Duration)
	}
	return &Injector{events: events, maxSpan: span}
}

// Active returns the events with MJDStart <= mjd < Expires.
func (in *Injector) Active(mjd float64) []Event {
	if in == nil {
		return nil
	}
	// Anything that started more than maxSpan days ago has expired.
	lo := sort.Search(len(in.events), func(i int) bool {
		return in.events[i].MJDStart >= mjd-in.maxSpan
	})

	var out []Event
	for i := lo; i < len(in.events) && in.events[i].MJDStart <= mjd; i++ {
		if mjd < in.events[i].Expires() {
			out = append(out, in.events[i])
		}
	}
	return out
}

// Len returns the number of events.
func (in *Injector) Len() int {
	if in == nil {
		return 0
	}
	return len(in.events)
}
