// Package metrics exposes Prometheus instrumentation for simulation runs and
// the status server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	visitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveyruns_visits_total",
			Help: "Completed visits by band and kind (survey or too).",
		},
		[]string{"band", "kind"},
	)

	slewSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "surveyruns_slew_seconds",
			Help:    "Slew plus filter change time before each visit.",
			Buckets: []float64{2, 4, 6, 10, 20, 40, 80, 120, 160, 240},
		},
	)

	tooVisitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveyruns_too_visits_total",
			Help: "Completed target-of-opportunity visits by event type.",
		},
		[]string{"type"},
	)

	simMJD = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "surveyruns_sim_mjd",
			Help: "Current simulated MJD.",
		},
	)

	simNight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "surveyruns_sim_night",
			Help: "Current simulated night number.",
		},
	)

	idleSecondsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "surveyruns_idle_seconds_total",
			Help: "Simulated night time with nothing to observe.",
		},
	)

	footprintPixels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "surveyruns_footprint_pixels",
			Help: "Pixels claimed per footprint region.",
		},
		[]string{"footprint", "region"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "surveyruns_http_requests_total",
			Help: "Total number of status server requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "surveyruns_http_duration_seconds",
			Help:    "Status server request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(visitsTotal)
	prometheus.MustRegister(slewSeconds)
	prometheus.MustRegister(tooVisitsTotal)
	prometheus.MustRegister(simMJD)
	prometheus.MustRegister(simNight)
	prometheus.MustRegister(idleSecondsTotal)
	prometheus.MustRegister(footprintPixels)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordVisit counts a completed visit. Notes of the form "ToO_<type>" are
// counted as target-of-opportunity visits.
func RecordVisit(band, note string, slew float64) {
	kind := "survey"
	if typ, ok := strings.CutPrefix(note, "ToO_"); ok {
		kind = "too"
		tooVisitsTotal.WithLabelValues(typ).Inc()
	}
	visitsTotal.WithLabelValues(band, kind).Inc()
	slewSeconds.Observe(slew)
}

// SetSimTime records the loop position.
func SetSimTime(mjd float64, night int) {
	simMJD.Set(mjd)
	simNight.Set(float64(night))
}

// AddIdle counts simulated seconds spent with nothing to observe.
func AddIdle(seconds float64) {
	if seconds > 0 {
		idleSecondsTotal.Add(seconds)
	}
}

// SetFootprintPixels publishes per-region pixel counts for a footprint.
// Unclaimed pixels are reported under region "none".
func SetFootprintPixels(footprint string, counts map[string]int) {
	for region, n := range counts {
		if region == "" {
			region = "none"
		}
		footprintPixels.WithLabelValues(footprint, region).Set(float64(n))
	}
}

// knownRoutes bounds the path label cardinality.
var knownRoutes = map[string]bool{
	"/":                true,
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/api/v1/progress": true,
}

// normalizeRoute maps a request path to a bounded label value.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
