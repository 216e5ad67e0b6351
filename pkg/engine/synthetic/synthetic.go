// Package synthetic implements a self-contained engine with a tunable cost
// profile. It performs no real tax-benefit arithmetic. Its construction path
// mirrors the shape of a production engine (a parameter tree built per
// simulation, with reform overrides forcing a full uprating pass across the
// projection window) so the profiling pipeline can be exercised and tested
// without an external engine.
package synthetic

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/policyengine/simprof/pkg/engine"
)

const (
	defaultCountryID       = "synthetic"
	defaultVersion         = "1.0.0"
	defaultParameterCount  = 400
	defaultProjectionYears = 75
	defaultWorkScale       = 40
)

// Engine is a synthetic tax-benefit engine. The zero value is not usable;
// construct with New.
type Engine struct {
	countryID       string
	version         string
	parameterCount  int
	projectionYears int
	workScale       int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCountryID overrides the registry identifier.
func WithCountryID(id string) Option {
	return func(e *Engine) { e.countryID = id }
}

// WithVersion overrides the reported engine version.
func WithVersion(v string) Option {
	return func(e *Engine) { e.version = v }
}

// WithParameterCount sets the number of nodes in the synthetic parameter
// tree. Construction cost scales linearly with it.
func WithParameterCount(n int) Option {
	return func(e *Engine) { e.parameterCount = n }
}

// WithProjectionYears caps how many years forward a reform override is
// uprated. Reform construction cost scales linearly with it.
func WithProjectionYears(n int) Option {
	return func(e *Engine) { e.projectionYears = n }
}

// WithWorkScale sets the inner arithmetic loop length per uprated value.
// Tests shrink this to keep profiled builds fast.
func WithWorkScale(n int) Option {
	return func(e *Engine) { e.workScale = n }
}

// New creates a synthetic engine with the given options applied over
// defaults sized so that a reform build costs one to two orders of
// magnitude more than a baseline build.
func New(opts ...Option) *Engine {
	e := &Engine{
		countryID:       defaultCountryID,
		version:         defaultVersion,
		parameterCount:  defaultParameterCount,
		projectionYears: defaultProjectionYears,
		workScale:       defaultWorkScale,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CountryID implements engine.Engine.
func (e *Engine) CountryID() string { return e.countryID }

// Version implements engine.Engine.
func (e *Engine) Version() string { return e.version }

// NewSimulation implements engine.Engine. A nil reform builds the baseline
// system with a single light pass over the parameter tree; a non-nil reform
// re-uprates every parameter across the projection window once per
// override, which dominates construction time.
func (e *Engine) NewSimulation(ctx context.Context, situation engine.Situation, reform engine.Reform) (engine.Simulation, error) {
	if situation == nil {
		return nil, eris.New("synthetic: situation is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	incomes, err := expandAxes(situation)
	if err != nil {
		return nil, err
	}

	tree := e.buildParameterTree(countEntities(situation))

	if reform != nil {
		if err := e.applyReform(tree, reform); err != nil {
			return nil, err
		}
	}

	return &simulation{
		eng:     e,
		tree:    tree,
		incomes: incomes,
		cache:   make(map[string][]float64),
	}, nil
}

// parameterNode is one node of the synthetic parameter tree.
type parameterNode struct {
	path     string
	values   []float64
	checksum float64
}

type parameterTree struct {
	nodes    []*parameterNode
	checksum float64
}

// buildParameterTree performs the baseline construction pass: one value per
// node per projection year, no per-value arithmetic loop.
func (e *Engine) buildParameterTree(entities int) *parameterTree {
	t := &parameterTree{nodes: make([]*parameterNode, 0, e.parameterCount)}
	for i := 0; i < e.parameterCount; i++ {
		n := &parameterNode{
			path:   "gov.synthetic.param" + strconv.Itoa(i),
			values: make([]float64, e.projectionYears),
		}
		base := 100.0 + float64(i) + float64(entities)
		for y := 0; y < e.projectionYears; y++ {
			n.values[y] = base * (1.0 + 0.02*float64(y))
		}
		n.checksum = n.values[len(n.values)-1]
		t.nodes = append(t.nodes, n)
	}
	return t
}

// applyReform validates each override and then re-uprates the entire tree
// once per override, reproducing the cache-invalidation cost a reform
// imposes on a production engine.
func (e *Engine) applyReform(tree *parameterTree, reform engine.Reform) error {
	for path, intervals := range reform {
		if len(intervals) == 0 {
			return eris.Errorf("synthetic: reform path %s has no date intervals", path)
		}
		for interval, value := range intervals {
			startYear, endYear, err := parseInterval(interval)
			if err != nil {
				return eris.Wrapf(err, "synthetic: reform path %s", path)
			}
			v, err := toFloat(value)
			if err != nil {
				return eris.Wrapf(err, "synthetic: reform path %s interval %s", path, interval)
			}
			e.uprateTree(tree, startYear, endYear, v)
		}
	}
	return nil
}

// uprateTree projects every parameter forward across the affected year
// range. This is the hot path a profile of a reform build should surface.
func (e *Engine) uprateTree(tree *parameterTree, startYear, endYear int, override float64) {
	years := endYear - startYear + 1
	if years > e.projectionYears {
		years = e.projectionYears
	}
	for _, n := range tree.nodes {
		for y := 0; y < years; y++ {
			tree.checksum += e.uprateValue(n, y, override)
		}
	}
}

// uprateValue computes one projected parameter value with a deliberate
// arithmetic loop so the work is CPU-bound and visible to a CPU profiler.
func (e *Engine) uprateValue(n *parameterNode, year int, override float64) float64 {
	v := n.values[year%len(n.values)] + override
	for m := 0; m < 12; m++ {
		for k := 0; k < e.workScale; k++ {
			v = math.Sqrt(v*v+float64(m+k)) + 0.5
		}
	}
	n.checksum = v
	return v
}

// simulation is the opaque handle returned by NewSimulation. Calculated
// series are cached per (variable, period) the way production engines cache
// computed variables, so repeated calculations of the same point are cheap.
// Not safe for concurrent use; the profiling pipeline is single-threaded.
type simulation struct {
	eng     *Engine
	tree    *parameterTree
	incomes []float64
	cache   map[string][]float64
}

// Calculate implements engine.Simulation. Results are deterministic in
// (variable, period, situation axes).
func (s *simulation) Calculate(ctx context.Context, variable, period string) ([]float64, error) {
	if variable == "" {
		return nil, eris.New("synthetic: variable name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := variable + "@" + period
	if series, ok := s.cache[key]; ok {
		out := make([]float64, len(series))
		copy(out, series)
		return out, nil
	}

	seed := hashSeed(variable, period)
	series := make([]float64, len(s.incomes))
	for i, income := range s.incomes {
		series[i] = s.calcPoint(seed, income)
	}

	s.cache[key] = series
	out := make([]float64, len(series))
	copy(out, series)
	return out, nil
}

// calcPoint evaluates one entity instance. Cost scales with the engine's
// work scale so calculation timings are measurable.
func (s *simulation) calcPoint(seed, income float64) float64 {
	v := income + seed
	for k := 0; k < s.eng.workScale*4; k++ {
		v = math.Sqrt(v*v+seed) - float64(k%3)
	}
	return v + s.tree.checksum*1e-9
}

// hashSeed derives a deterministic per-variable seed.
func hashSeed(variable, period string) float64 {
	h := fnv.New32a()
	h.Write([]byte(variable))
	h.Write([]byte("@"))
	h.Write([]byte(period))
	return float64(h.Sum32()%10_000) / 100.0
}

// countEntities counts second-level entries across all entity groups,
// skipping the axes directive.
func countEntities(situation engine.Situation) int {
	count := 0
	for key, group := range situation {
		if key == "axes" {
			continue
		}
		switch g := group.(type) {
		case map[string]any:
			count += len(g)
		case engine.Situation:
			count += len(g)
		}
	}
	return count
}

// expandAxes expands the first axis directive into a series of attribute
// values. A situation without axes yields a single point at zero.
func expandAxes(situation engine.Situation) ([]float64, error) {
	raw, ok := situation["axes"]
	if !ok {
		return []float64{0}, nil
	}

	axis, err := firstAxis(raw)
	if err != nil {
		return nil, err
	}
	if axis == nil {
		return []float64{0}, nil
	}

	count := intField(axis, "count", 1)
	if count < 1 {
		return nil, eris.Errorf("synthetic: axis count must be >= 1, got %d", count)
	}
	minVal := floatField(axis, "min", 0)
	maxVal := floatField(axis, "max", 0)

	incomes := make([]float64, count)
	if count == 1 {
		incomes[0] = minVal
		return incomes, nil
	}
	step := (maxVal - minVal) / float64(count-1)
	for i := range incomes {
		incomes[i] = minVal + step*float64(i)
	}
	return incomes, nil
}

// firstAxis digs the first axis map out of the nested axes list, which
// arrives as typed slices from fixtures or as []any from YAML/JSON.
func firstAxis(raw any) (map[string]any, error) {
	switch outer := raw.(type) {
	case [][]map[string]any:
		if len(outer) == 0 || len(outer[0]) == 0 {
			return nil, nil
		}
		return outer[0][0], nil
	case []any:
		if len(outer) == 0 {
			return nil, nil
		}
		inner, ok := outer[0].([]any)
		if !ok {
			return nil, eris.New("synthetic: axes must be a list of axis lists")
		}
		if len(inner) == 0 {
			return nil, nil
		}
		axis, ok := inner[0].(map[string]any)
		if !ok {
			return nil, eris.New("synthetic: axis entry must be a mapping")
		}
		return axis, nil
	default:
		return nil, eris.New("synthetic: axes must be a list of axis lists")
	}
}

func intField(m map[string]any, key string, fallback int) int {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	f, err := toFloat(v)
	if err != nil {
		return fallback
	}
	return int(f)
}

func floatField(m map[string]any, key string, fallback float64) float64 {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	f, err := toFloat(v)
	if err != nil {
		return fallback
	}
	return f
}

// toFloat normalizes the numeric types produced by YAML and JSON decoding.
// Booleans are allowed because eligibility-style parameters are switched
// with true/false overrides.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, eris.Errorf("synthetic: expected a number, got %T", v)
	}
}

// parseInterval splits a "YYYY-MM-DD.YYYY-MM-DD" date interval into its
// start and end years.
func parseInterval(interval string) (startYear, endYear int, err error) {
	start, end, found := strings.Cut(interval, ".")
	if !found {
		return 0, 0, eris.Errorf("invalid date interval %q: want YYYY-MM-DD.YYYY-MM-DD", interval)
	}
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "invalid interval start %q", start)
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "invalid interval end %q", end)
	}
	if endDate.Before(startDate) {
		return 0, 0, eris.Errorf("interval end %s before start %s", end, start)
	}
	return startDate.Year(), endDate.Year(), nil
}
