package footprint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Variant is a named footprint geometry: an AreaMap plus the ratio tables it
// is painted with.
type Variant struct {
	Name   string
	Map    *AreaMap
	Ratios Ratios
}

// Maps paints the variant.
func (v *Variant) Maps() (*Maps, error) {
	return v.Map.ReturnMaps(v.Ratios)
}

// NewCurrent is the baseline footprint with DefaultConfig thresholds.
func NewCurrent(ctx context.Context, opts ...Option) (*Variant, error) {
	return newVariant(ctx, "current", DefaultConfig(), opts...)
}

// NewSmallFP1 pulls the northern edge of the low-dust and dusty-plane regions
// down to +5 deg and lets the NES reach to -10 deg.
func NewSmallFP1(ctx context.Context, opts ...Option) (*Variant, error) {
	cfg := DefaultConfig()
	cfg.LowDustDecMax = 5
	cfg.DustyDecMax = 5
	cfg.EclipDecMin = -10
	return newVariant(ctx, "smallfp1", cfg, opts...)
}

// NewSmallFP2 restricts the low-dust region to -60..+2 deg, the dusty plane to
// below +2 deg, and lets the NES reach to -10 deg.
func NewSmallFP2(ctx context.Context, opts ...Option) (*Variant, error) {
	cfg := DefaultConfig()
	cfg.LowDustDecMax = 2
	cfg.LowDustDecMin = -60
	cfg.DustyDecMax = 2
	cfg.EclipDecMin = -10
	return newVariant(ctx, "smallfp2", cfg, opts...)
}

func newVariant(ctx context.Context, name string, cfg Config, opts ...Option) (*Variant, error) {
	m, err := New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("footprint %s: %w", name, err)
	}
	return &Variant{Name: name, Map: m, Ratios: DefaultRatios()}, nil
}

type constructor func(context.Context, ...Option) (*Variant, error)

var builtins = map[string]constructor{
	"current":  NewCurrent,
	"smallfp1": NewSmallFP1,
	"smallfp2": NewSmallFP2,
}

// Names lists the built-in variants.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build returns a built-in variant by name, or loads one from a YAML file when
// name ends in .yaml or .yml.
func Build(ctx context.Context, name string, opts ...Option) (*Variant, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".yaml" || ext == ".yml" {
		return LoadVariant(ctx, name, opts...)
	}
	ctor, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown footprint %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(ctx, opts...)
}

// variantFile is the on-disk form of a variant. Config fields absent from the
// file keep their DefaultConfig values; ratio tables replace whole regions.
type variantFile struct {
	Name   string                `yaml:"name"`
	Config Config                `yaml:"config"`
	Ratios map[string]BandRatios `yaml:"ratios"`
}

// LoadVariant reads a variant definition:
//
//	name: northern
//	config:
//	  low_dust_dec_max: 8
//	ratios:
//	  lowdust: {u: 0.3, g: 0.4, r: 1.0, i: 1.0, z: 0.9, y: 0.9}
func LoadVariant(ctx context.Context, path string, opts ...Option) (*Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading footprint variant: %w", err)
	}
	return ParseVariant(ctx, data, path, opts...)
}

// ParseVariant is LoadVariant for in-memory YAML. source names the data in errors.
func ParseVariant(ctx context.Context, data []byte, source string, opts ...Option) (*Variant, error) {
	vf := variantFile{Config: DefaultConfig()}
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, fmt.Errorf("footprint variant %s: %w", source, err)
	}

	overrides := make(Ratios, len(vf.Ratios))
	for label, br := range vf.Ratios {
		r, ok := RegionForLabel(label)
		if !ok {
			return nil, fmt.Errorf("footprint variant %s: unknown region %q", source, label)
		}
		if _, err := br.weights(); err != nil {
			return nil, fmt.Errorf("footprint variant %s: region %s: %w", source, label, err)
		}
		overrides[r] = br
	}

	name := vf.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	v, err := newVariant(ctx, name, vf.Config, opts...)
	if err != nil {
		return nil, err
	}
	v.Ratios = v.Ratios.Merge(overrides)
	return v, nil
}
