// Package scoring implements the financial health index: validation, the
// five component scorers, the weighted composite, what-if scenarios,
// explainability and the static peer benchmark.
//
// Every function in this package is pure. Nothing reads the clock, shared
// state or the network, so identical inputs always produce bit-identical
// outputs and all functions are safe for concurrent use.
package scoring

import (
	"github.com/opensource-finance/fhi/internal/domain"
)

// DefaultMovers is the number of movers reported per direction by Simulate.
const DefaultMovers = 5

// Score validates a profile and, when it is valid, scores it.
// On validation errors the returned error is a *ValidationError and the
// ScoreResult is the zero value.
func Score(p domain.Profile) (domain.ScoreResult, Validation, error) {
	v := Validate(p)
	if err := v.Err(); err != nil {
		return domain.ScoreResult{}, v, err
	}
	return Result(p), v, nil
}

// Simulate scores a baseline profile and the scenario derived from it by delta.
// Both the baseline and the derived scenario must pass validation; warnings
// from either are merged into the simulation.
func Simulate(baseline domain.Profile, delta domain.ScenarioDelta) (domain.Simulation, error) {
	bv := Validate(baseline)
	if err := bv.Err(); err != nil {
		return domain.Simulation{}, err
	}

	scenario := ApplyScenario(baseline, delta)
	sv := Validate(scenario)
	if !sv.OK() {
		errs := make([]string, 0, len(sv.Errors))
		for _, e := range sv.Errors {
			errs = append(errs, "scenario: "+e)
		}
		return domain.Simulation{}, &ValidationError{Errors: errs, Warnings: sv.Warnings}
	}

	baseResult, scenarioResult := Compare(baseline, scenario)
	improved, declined := TopMovers(baseResult.Components, scenarioResult.Components, DefaultMovers)

	warnings := append([]string(nil), bv.Warnings...)
	for _, w := range sv.Warnings {
		warnings = append(warnings, "scenario: "+w)
	}

	return domain.Simulation{
		BaselineProfile: baseline,
		ScenarioProfile: scenario,
		Delta:           delta,
		Baseline:        baseResult,
		Scenario:        scenarioResult,
		CompositeChange: scenarioResult.CompositeScore - baseResult.CompositeScore,
		Improved:        improved,
		Declined:        declined,
		Warnings:        warnings,
	}, nil
}
