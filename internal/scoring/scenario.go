package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/opensource-finance/fhi/internal/domain"
)

// AdjustableFields are the profile fields a scenario may perturb.
// Net worth and age are scenario-invariant.
var AdjustableFields = []domain.Field{
	domain.FieldMonthlyIncome,
	domain.FieldMonthlyExpenses,
	domain.FieldMonthlySavings,
	domain.FieldMonthlyDebtPayment,
	domain.FieldTotalInvestments,
	domain.FieldEmergencyFund,
}

// IsAdjustable reports whether a scenario may perturb field f.
func IsAdjustable(f domain.Field) bool {
	for _, a := range AdjustableFields {
		if a == f {
			return true
		}
	}
	return false
}

// ApplyScenario derives a scenario profile from a baseline. For each
// adjustable field the scenario value is
//
//	max(0, base * (1 + pct/100) + abs)
//
// Fields the delta does not reference keep their baseline value, references
// to non-adjustable fields are ignored, and a NaN or infinite pct or abs
// counts as 0. The baseline is not modified.
func ApplyScenario(baseline domain.Profile, delta domain.ScenarioDelta) domain.Profile {
	scenario := baseline
	for _, f := range AdjustableFields {
		pct, hasPct := delta.Percent[f]
		abs, hasAbs := delta.Absolute[f]
		if !hasPct && !hasAbs {
			continue
		}
		base, _ := baseline.Value(f)
		v := base*(1+finiteOrZero(pct)/100) + finiteOrZero(abs)
		scenario = scenario.With(f, math.Max(0, finiteOrZero(v)))
	}
	return scenario
}

// ValidateDelta rejects deltas that reference unknown or scenario-invariant
// fields, or that carry non-finite values. ApplyScenario tolerates both;
// this check belongs at the request boundary.
func ValidateDelta(delta domain.ScenarioDelta) error {
	var problems []string
	check := func(kind string, m map[domain.Field]float64) {
		fields := make([]string, 0, len(m))
		for f := range m {
			fields = append(fields, string(f))
		}
		sort.Strings(fields)
		for _, name := range fields {
			f := domain.Field(name)
			v := m[f]
			if !IsAdjustable(f) {
				problems = append(problems, fmt.Sprintf("%s: field %q cannot be adjusted", kind, f))
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				problems = append(problems, fmt.Sprintf("%s: field %q must be a finite number", kind, f))
			}
		}
	}
	check("percent", delta.Percent)
	check("absolute", delta.Absolute)

	if len(problems) > 0 {
		return &ValidationError{Errors: problems}
	}
	return nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Compare scores a baseline and a scenario profile side by side.
// Both profiles are assumed to be validated.
func Compare(baseline, scenario domain.Profile) (domain.ScoreResult, domain.ScoreResult) {
	return Result(baseline), Result(scenario)
}
