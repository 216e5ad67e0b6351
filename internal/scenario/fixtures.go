package scenario

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/policyengine/simprof/pkg/engine"
)

// DefaultIncomePoints is the employment-income sweep width of the built-in
// households.
const DefaultIncomePoints = 1001

// BuiltinSituation returns the named country's test household: one adult
// with employment income swept across an axis. Every call builds the maps
// from scratch, so callers can mutate the result freely.
func BuiltinSituation(country string, incomePoints int) (engine.Situation, error) {
	if incomePoints <= 0 {
		incomePoints = DefaultIncomePoints
	}
	switch country {
	case "us":
		return usSituation(incomePoints), nil
	case "uk":
		return ukSituation(incomePoints), nil
	case "synthetic":
		return syntheticSituation(incomePoints), nil
	default:
		return nil, eris.Errorf("scenario: no built-in situation for country %q", country)
	}
}

// BuiltinReform returns the country's default built-in reform.
func BuiltinReform(country string) (engine.Reform, error) {
	name, err := DefaultReformName(country)
	if err != nil {
		return nil, err
	}
	return ReformByName(name)
}

// DefaultReformName returns the name of the country's default reform, for
// labelling runs that did not choose one.
func DefaultReformName(country string) (string, error) {
	name, ok := defaultReforms[country]
	if !ok {
		return "", eris.Errorf("scenario: no built-in reform for country %q", country)
	}
	return name, nil
}

// ReformByName returns a built-in reform fixture, freshly built per call.
func ReformByName(name string) (engine.Reform, error) {
	build, ok := reformFixtures[name]
	if !ok {
		return nil, eris.Errorf("scenario: unknown reform %q (available: %v)", name, ReformNames())
	}
	return build(), nil
}

// ReformNames lists the built-in reform names, sorted.
func ReformNames() []string {
	names := make([]string, 0, len(reformFixtures))
	for name := range reformFixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultReforms = map[string]string{
	"us":        "aca-ptc-extension",
	"uk":        "universal-credit-10pct",
	"synthetic": "synthetic-uprating",
}

var reformFixtures = map[string]func() engine.Reform{
	"aca-ptc-extension":      acaPTCExtension,
	"universal-credit-10pct": universalCredit10pct,
	"synthetic-uprating":     syntheticUprating,
}

// 35 year old in Texas, employment income 0..$1M. The extra entity groups
// mirror the US model's family/SPM/tax-unit structure; the household
// config does not move the construction bottleneck, the axes do.
func usSituation(incomePoints int) engine.Situation {
	return engine.Situation{
		"people": map[string]any{
			"you": map[string]any{
				"age": map[string]any{"2026": 35},
			},
		},
		"families": map[string]any{
			"your family": map[string]any{"members": []any{"you"}},
		},
		"spm_units": map[string]any{
			"your household": map[string]any{"members": []any{"you"}},
		},
		"tax_units": map[string]any{
			"your tax unit": map[string]any{"members": []any{"you"}},
		},
		"households": map[string]any{
			"your household": map[string]any{
				"members":    []any{"you"},
				"state_name": map[string]any{"2026": "TX"},
			},
		},
		"axes": [][]map[string]any{{{
			"name":   "employment_income",
			"count":  incomePoints,
			"min":    0,
			"max":    1000000,
			"period": 2026,
		}}},
	}
}

// 35 year old in England, employment income 0..£100k.
func ukSituation(incomePoints int) engine.Situation {
	return engine.Situation{
		"people": map[string]any{
			"you": map[string]any{
				"age": map[string]any{"2024": 35},
			},
		},
		"benunits": map[string]any{
			"your benunit": map[string]any{"members": []any{"you"}},
		},
		"households": map[string]any{
			"your household": map[string]any{
				"members": []any{"you"},
				"region":  map[string]any{"2024": "ENGLAND"},
			},
		},
		"axes": [][]map[string]any{{{
			"name":   "employment_income",
			"count":  incomePoints,
			"min":    0,
			"max":    100000,
			"period": 2024,
		}}},
	}
}

func syntheticSituation(incomePoints int) engine.Situation {
	return engine.Situation{
		"people": map[string]any{
			"you": map[string]any{
				"age": map[string]any{"2026": 35},
			},
		},
		"households": map[string]any{
			"your household": map[string]any{"members": []any{"you"}},
		},
		"axes": [][]map[string]any{{{
			"name":   "employment_income",
			"count":  incomePoints,
			"min":    0,
			"max":    100000,
			"period": 2026,
		}}},
	}
}

// Zeroes out the ACA premium tax credit phase-out schedule from 2026 and
// flips the related income-eligibility switch.
func acaPTCExtension() engine.Reform {
	return engine.Reform{
		"gov.aca.ptc_phase_out_rate[0].amount":     {"2026-01-01.2100-12-31": 0},
		"gov.aca.ptc_phase_out_rate[1].amount":     {"2025-01-01.2100-12-31": 0},
		"gov.aca.ptc_phase_out_rate[2].amount":     {"2026-01-01.2100-12-31": 0},
		"gov.aca.ptc_phase_out_rate[3].amount":     {"2026-01-01.2100-12-31": 0.02},
		"gov.aca.ptc_phase_out_rate[4].amount":     {"2026-01-01.2100-12-31": 0.04},
		"gov.aca.ptc_phase_out_rate[5].amount":     {"2026-01-01.2100-12-31": 0.06},
		"gov.aca.ptc_phase_out_rate[6].amount":     {"2026-01-01.2100-12-31": 0.085},
		"gov.aca.ptc_income_eligibility[2].amount": {"2026-01-01.2100-12-31": true},
	}
}

// Raises the single under-25 universal credit standard allowance 10% over
// the 2024 monthly rate.
func universalCredit10pct() engine.Reform {
	return engine.Reform{
		"gov.dwp.universal_credit.elements.standard_allowance.amount.single.under_25": {
			"2024-01-01.2100-12-31": 311.68 * 1.1,
		},
	}
}

func syntheticUprating() engine.Reform {
	return engine.Reform{
		"gov.synthetic.brackets[0].rate":    {"2026-01-01.2100-12-31": 0.02},
		"gov.synthetic.brackets[1].rate":    {"2026-01-01.2100-12-31": 0.04},
		"gov.synthetic.allowance.amount":    {"2026-01-01.2100-12-31": 12570},
		"gov.synthetic.eligibility.enabled": {"2026-01-01.2100-12-31": true},
	}
}
