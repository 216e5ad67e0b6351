package synthetic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyengine/simprof/pkg/engine"
)

// newFastEngine returns an engine scaled down for test speed.
func newFastEngine(opts ...Option) *Engine {
	base := []Option{WithParameterCount(20), WithProjectionYears(5), WithWorkScale(2)}
	return New(append(base, opts...)...)
}

func axedSituation(points int) engine.Situation {
	return engine.Situation{
		"people": map[string]any{
			"you": map[string]any{"age": map[string]any{"2026": 35}},
		},
		"households": map[string]any{
			"household": map[string]any{"members": []any{"you"}},
		},
		"axes": [][]map[string]any{{{
			"name":   "employment_income",
			"count":  points,
			"min":    0.0,
			"max":    100_000.0,
			"period": 2026,
		}}},
	}
}

func validReform() engine.Reform {
	return engine.Reform{
		"gov.synthetic.param1": {"2026-01-01.2100-12-31": 0.0},
	}
}

func TestNewSimulationBaseline(t *testing.T) {
	eng := newFastEngine()

	sim, err := eng.NewSimulation(context.Background(), axedSituation(11), nil)
	require.NoError(t, err)
	require.NotNil(t, sim)
}

func TestNewSimulationNilSituation(t *testing.T) {
	eng := newFastEngine()

	_, err := eng.NewSimulation(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "situation is required")
}

func TestNewSimulationInvalidInterval(t *testing.T) {
	eng := newFastEngine()
	reform := engine.Reform{
		"gov.synthetic.param1": {"not-a-date-interval": 0.0},
	}

	_, err := eng.NewSimulation(context.Background(), axedSituation(3), reform)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date interval")
}

func TestNewSimulationNonNumericOverride(t *testing.T) {
	eng := newFastEngine()
	reform := engine.Reform{
		"gov.synthetic.param1": {"2026-01-01.2100-12-31": "zero"},
	}

	_, err := eng.NewSimulation(context.Background(), axedSituation(3), reform)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a number")
}

func TestNewSimulationCancelledContext(t *testing.T) {
	eng := newFastEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.NewSimulation(ctx, axedSituation(3), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCalculateSeriesLengthMatchesAxes(t *testing.T) {
	eng := newFastEngine()
	sim, err := eng.NewSimulation(context.Background(), axedSituation(101), nil)
	require.NoError(t, err)

	series, err := sim.Calculate(context.Background(), "household_net_income", "2026")
	require.NoError(t, err)
	assert.Len(t, series, 101)
}

func TestCalculateDeterministic(t *testing.T) {
	eng := newFastEngine()
	ctx := context.Background()

	sim1, err := eng.NewSimulation(ctx, axedSituation(21), nil)
	require.NoError(t, err)
	sim2, err := eng.NewSimulation(ctx, axedSituation(21), nil)
	require.NoError(t, err)

	a, err := sim1.Calculate(ctx, "household_net_income", "2026")
	require.NoError(t, err)
	b, err := sim2.Calculate(ctx, "household_net_income", "2026")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCalculateCachedRepeat(t *testing.T) {
	eng := newFastEngine()
	ctx := context.Background()
	sim, err := eng.NewSimulation(ctx, axedSituation(21), nil)
	require.NoError(t, err)

	first, err := sim.Calculate(ctx, "income_tax", "2026")
	require.NoError(t, err)
	second, err := sim.Calculate(ctx, "income_tax", "2026")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	// Cached series must not alias the returned slice.
	second[0] = -1
	third, err := sim.Calculate(ctx, "income_tax", "2026")
	require.NoError(t, err)
	assert.Equal(t, first[0], third[0])
}

func TestCalculateEmptyVariable(t *testing.T) {
	eng := newFastEngine()
	sim, err := eng.NewSimulation(context.Background(), axedSituation(3), nil)
	require.NoError(t, err)

	_, err = sim.Calculate(context.Background(), "", "2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variable name is required")
}

func TestNoAxesYieldsSinglePoint(t *testing.T) {
	eng := newFastEngine()
	situation := engine.Situation{
		"people": map[string]any{"you": map[string]any{}},
	}

	sim, err := eng.NewSimulation(context.Background(), situation, nil)
	require.NoError(t, err)

	series, err := sim.Calculate(context.Background(), "income_tax", "2026")
	require.NoError(t, err)
	assert.Len(t, series, 1)
}

func TestAxesFromDecodedJSON(t *testing.T) {
	// YAML/JSON decoding produces []any nesting rather than typed slices.
	eng := newFastEngine()
	situation := engine.Situation{
		"people": map[string]any{"you": map[string]any{}},
		"axes": []any{
			[]any{
				map[string]any{"name": "employment_income", "count": 5, "min": 0.0, "max": 1000.0},
			},
		},
	}

	sim, err := eng.NewSimulation(context.Background(), situation, nil)
	require.NoError(t, err)

	series, err := sim.Calculate(context.Background(), "income_tax", "2026")
	require.NoError(t, err)
	assert.Len(t, series, 5)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		name      string
		interval  string
		wantStart int
		wantEnd   int
		wantErr   bool
	}{
		{"full window", "2026-01-01.2100-12-31", 2026, 2100, false},
		{"single year", "2024-01-01.2024-12-31", 2024, 2024, false},
		{"missing separator", "2026-01-01", 0, 0, true},
		{"bad start date", "garbage.2100-12-31", 0, 0, true},
		{"bad end date", "2026-01-01.garbage", 0, 0, true},
		{"end before start", "2100-01-01.2026-12-31", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseInterval(tt.interval)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestReformBuildSlowerThanBaseline(t *testing.T) {
	// Uprating cost must dominate so overhead measurements have signal.
	// Sized so the reform build does ~4 orders of magnitude more arithmetic
	// than the baseline build, making a single timing comparison safe.
	eng := New(WithParameterCount(200), WithProjectionYears(40), WithWorkScale(20))
	ctx := context.Background()
	situation := axedSituation(11)

	start := time.Now()
	_, err := eng.NewSimulation(ctx, situation, nil)
	require.NoError(t, err)
	baselineDur := time.Since(start)

	start = time.Now()
	_, err = eng.NewSimulation(ctx, situation, validReform())
	require.NoError(t, err)
	reformDur := time.Since(start)

	assert.Greater(t, reformDur, baselineDur)
}
