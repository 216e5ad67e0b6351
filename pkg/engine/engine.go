// Package engine defines the contract between the profiler and an external
// microsimulation engine, plus a process-wide registry of available engines.
package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// Situation describes the simulated entities (people, households, and any
// other entity groups the engine recognizes) and their time-indexed
// attribute values. The structure is opaque to the profiler and passed
// through verbatim to the engine. A top-level "axes" entry, when present,
// asks the engine to expand one attribute across a range of values.
type Situation map[string]any

// Reform maps a parameter path (a dotted/bracketed string identifying a
// node in the engine's parameter tree) to a mapping from date-interval
// string ("YYYY-MM-DD.YYYY-MM-DD") to override value. Opaque to the
// profiler; interpreted only by the engine.
type Reform map[string]map[string]any

// Simulation is an opaque handle to a constructed simulation. The profiler
// holds it only long enough to time its creation and, for variable
// profiling, to invoke calculations on it.
type Simulation interface {
	// Calculate evaluates one variable for one period and returns the
	// numeric series across all simulated entity instances.
	Calculate(ctx context.Context, variable, period string) ([]float64, error)
}

// Engine is the construction entry point of one country's tax-benefit
// system. A nil reform builds the baseline system; a non-nil reform applies
// the overrides before construction, which is exactly the code path whose
// cost this tool exists to measure.
type Engine interface {
	// CountryID returns the registry identifier (e.g. "us", "uk").
	CountryID() string

	// Version returns the engine's version string for result records.
	Version() string

	// NewSimulation builds a simulation from the situation, applying the
	// reform first when one is given.
	NewSimulation(ctx context.Context, situation Situation, reform Reform) (Simulation, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Engine)
)

// Register makes an engine available under its country ID. It panics if an
// engine is already registered for that ID, matching database/sql driver
// semantics: duplicate registration is a wiring bug, not a runtime
// condition.
func Register(e Engine) {
	registryMu.Lock()
	defer registryMu.Unlock()

	id := e.CountryID()
	if id == "" {
		panic("engine: Register called with empty country ID")
	}
	if _, dup := registry[id]; dup {
		panic("engine: Register called twice for country " + id)
	}
	registry[id] = e
}

// Lookup returns the engine registered for the given country ID.
func Lookup(countryID string) (Engine, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	e, ok := registry[countryID]
	if !ok {
		return nil, eris.Errorf("engine: unknown country %q (registered: %v)", countryID, countries())
	}
	return e, nil
}

// Countries returns the registered country IDs in sorted order.
func Countries() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return countries()
}

func countries() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// unregister removes an engine. Only tests need this.
func unregister(countryID string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, countryID)
}
