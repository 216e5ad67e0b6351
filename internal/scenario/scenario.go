// Package scenario supplies the situations and reforms a profiling run is
// built from: built-in country fixtures plus YAML/JSON file loaders. Both
// kinds of spec are opaque payloads for the engine; the only thing checked
// here is reform date-interval syntax, so a typo fails at load time instead
// of minutes into a profile.
package scenario

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/policyengine/simprof/pkg/engine"
)

// LoadSituation reads a situation from a .yaml, .yml or .json file. The
// content is handed to the engine verbatim.
func LoadSituation(path string) (engine.Situation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read situation %s", path)
	}

	var situation engine.Situation
	if err := unmarshalByExt(path, data, &situation); err != nil {
		return nil, eris.Wrapf(err, "scenario: parse situation %s", path)
	}
	if len(situation) == 0 {
		return nil, eris.Errorf("scenario: situation file %s is empty", path)
	}
	return situation, nil
}

// LoadReform reads a reform from a .yaml, .yml or .json file and validates
// every date interval. Override values stay opaque.
func LoadReform(path string) (engine.Reform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read reform %s", path)
	}

	var reform engine.Reform
	if err := unmarshalByExt(path, data, &reform); err != nil {
		return nil, eris.Wrapf(err, "scenario: parse reform %s", path)
	}
	if len(reform) == 0 {
		return nil, eris.Errorf("scenario: reform file %s is empty", path)
	}
	if err := ValidateReform(reform); err != nil {
		return nil, eris.Wrapf(err, "scenario: reform file %s", path)
	}
	return reform, nil
}

// ResolveSituation picks the situation for a run: a file when path is set,
// otherwise the country's built-in household.
func ResolveSituation(country, path string, incomePoints int) (engine.Situation, error) {
	if path == "" {
		return BuiltinSituation(country, incomePoints)
	}
	return LoadSituation(path)
}

// ResolveReform accepts either a built-in reform name or a path to a
// reform file, telling them apart by extension.
func ResolveReform(nameOrPath string) (engine.Reform, error) {
	switch strings.ToLower(filepath.Ext(nameOrPath)) {
	case ".yaml", ".yml", ".json":
		return LoadReform(nameOrPath)
	default:
		return ReformByName(nameOrPath)
	}
}

func unmarshalByExt(path string, data []byte, out any) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	case ".json":
		return json.Unmarshal(data, out)
	default:
		return eris.Errorf("unsupported extension %q (want .yaml, .yml or .json)", ext)
	}
}

// ValidateReform checks the shape of a reform: non-empty parameter paths,
// at least one override per parameter, well-formed date intervals.
func ValidateReform(reform engine.Reform) error {
	for path, overrides := range reform {
		if strings.TrimSpace(path) == "" {
			return eris.New("scenario: empty parameter path")
		}
		if len(overrides) == 0 {
			return eris.Errorf("scenario: parameter %s has no overrides", path)
		}
		for interval := range overrides {
			if err := ValidateInterval(interval); err != nil {
				return eris.Wrapf(err, "scenario: parameter %s", path)
			}
		}
	}
	return nil
}

// ValidateInterval checks a "YYYY-MM-DD.YYYY-MM-DD" date interval.
func ValidateInterval(interval string) error {
	start, end, found := strings.Cut(interval, ".")
	if !found {
		return eris.Errorf(`interval %q must be "YYYY-MM-DD.YYYY-MM-DD"`, interval)
	}
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return eris.Wrapf(err, "interval %q start date", interval)
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return eris.Wrapf(err, "interval %q end date", interval)
	}
	if endDate.Before(startDate) {
		return eris.Errorf("interval %q ends before it starts", interval)
	}
	return nil
}
