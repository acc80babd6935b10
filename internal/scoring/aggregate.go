package scoring

import "github.com/opensource-finance/fhi/internal/domain"

// Aggregate combines component scores into the composite score:
// the weighted sum plus the base offset. It does not clamp the result.
func Aggregate(components domain.ComponentScores, weights WeightVector) float64 {
	var total float64
	for _, c := range domain.Components {
		total += weights.Get(c) * components.Get(c)
	}
	return total + weights.BaseOffset
}

// Result scores an already validated profile.
func Result(p domain.Profile) domain.ScoreResult {
	components := ScoreComponents(p)
	return domain.ScoreResult{
		CompositeScore: Aggregate(components, Weights),
		Components:     components,
	}
}
