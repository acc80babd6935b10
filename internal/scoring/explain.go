package scoring

import (
	"sort"

	"github.com/opensource-finance/fhi/internal/domain"
)

// Explanation decomposes a composite score into weighted contributions.
// WeightedTotal + BaseOffset reproduces the composite score.
type Explanation struct {
	Contributions map[domain.Component]float64 `json:"contributions"`
	WeightedTotal float64                      `json:"weightedTotal"`
	BaseOffset    float64                      `json:"baseOffset"`
}

// Explain returns each component's weighted contribution. The offset is
// reported separately and never distributed across components.
func Explain(components domain.ComponentScores) Explanation {
	exp := Explanation{
		Contributions: make(map[domain.Component]float64, len(domain.Components)),
		BaseOffset:    Weights.BaseOffset,
	}
	for _, c := range domain.Components {
		contribution := Weights.Get(c) * components.Get(c)
		exp.Contributions[c] = contribution
		exp.WeightedTotal += contribution
	}
	return exp
}

// TopMovers ranks component changes from baseline to scenario.
// Improved holds positive deltas, largest first; declined holds negative
// deltas, most negative first. Zero deltas appear in neither list, equal
// deltas keep enumeration order, and each list is truncated to k.
func TopMovers(baseline, scenario domain.ComponentScores, k int) (improved, declined []domain.Mover) {
	improved = []domain.Mover{}
	declined = []domain.Mover{}
	if k <= 0 {
		return improved, declined
	}

	for _, c := range domain.Components {
		delta := scenario.Get(c) - baseline.Get(c)
		switch {
		case delta > 0:
			improved = append(improved, domain.Mover{Component: c, Delta: delta})
		case delta < 0:
			declined = append(declined, domain.Mover{Component: c, Delta: delta})
		}
	}

	sort.SliceStable(improved, func(i, j int) bool { return improved[i].Delta > improved[j].Delta })
	sort.SliceStable(declined, func(i, j int) bool { return declined[i].Delta < declined[j].Delta })

	if len(improved) > k {
		improved = improved[:k]
	}
	if len(declined) > k {
		declined = declined[:k]
	}
	return improved, declined
}
