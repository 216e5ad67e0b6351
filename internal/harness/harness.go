// Package harness constructs baseline and reform simulations through an
// engine's public entry point, wrapping construction failures into a single
// reported error kind so low-level engine errors never surface untouched.
package harness

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/policyengine/simprof/pkg/engine"
)

// BuildKind distinguishes which of the two builds failed.
type BuildKind string

const (
	BuildBaseline BuildKind = "baseline"
	BuildReform   BuildKind = "reform"
)

// ConstructionError reports a simulation the engine could not build. It
// carries a digest of the offending spec and the underlying engine error;
// the engine's message propagates verbatim through Error and Unwrap so
// reports can show the real cause. Construction is never retried.
type ConstructionError struct {
	Country   string
	Kind      BuildKind
	Entities  int
	Overrides int
	Err       error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construction of %s simulation failed for country %s (%d entities, %d overrides): %v",
		e.Kind, e.Country, e.Entities, e.Overrides, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Harness binds the profiling pipeline to one registered engine.
type Harness struct {
	eng engine.Engine
}

// New looks up the engine for the given country and returns a harness
// bound to it.
func New(countryID string) (*Harness, error) {
	eng, err := engine.Lookup(countryID)
	if err != nil {
		return nil, eris.Wrap(err, "harness: bind engine")
	}
	return &Harness{eng: eng}, nil
}

// ForEngine binds a harness directly to an engine instance.
func ForEngine(eng engine.Engine) *Harness {
	return &Harness{eng: eng}
}

// Engine returns the bound engine.
func (h *Harness) Engine() engine.Engine { return h.eng }

// BuildBaseline constructs a simulation with no reform overrides.
func (h *Harness) BuildBaseline(ctx context.Context, situation engine.Situation) (engine.Simulation, error) {
	return h.build(ctx, BuildBaseline, situation, nil)
}

// BuildReform constructs a simulation with the reform's overrides applied.
func (h *Harness) BuildReform(ctx context.Context, situation engine.Situation, reform engine.Reform) (engine.Simulation, error) {
	return h.build(ctx, BuildReform, situation, reform)
}

func (h *Harness) build(ctx context.Context, kind BuildKind, situation engine.Situation, reform engine.Reform) (engine.Simulation, error) {
	sim, err := h.eng.NewSimulation(ctx, situation, reform)
	if err != nil {
		cerr := &ConstructionError{
			Country:   h.eng.CountryID(),
			Kind:      kind,
			Entities:  countEntities(situation),
			Overrides: len(reform),
			Err:       err,
		}
		zap.L().Error("harness: simulation construction failed",
			zap.String("country", cerr.Country),
			zap.String("kind", string(kind)),
			zap.Int("entities", cerr.Entities),
			zap.Int("overrides", cerr.Overrides),
			zap.Error(err),
		)
		return nil, cerr
	}
	return sim, nil
}

// countEntities sizes the situation digest reported on failures: the
// number of second-level entries across entity groups, excluding the axes
// directive.
func countEntities(situation engine.Situation) int {
	count := 0
	for key, group := range situation {
		if key == "axes" {
			continue
		}
		if g, ok := group.(map[string]any); ok {
			count += len(g)
		}
	}
	return count
}
