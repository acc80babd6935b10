package scoring

import "github.com/opensource-finance/fhi/internal/domain"

type peerBracket struct {
	name      string
	maxAge    int
	reference domain.PeerReference
}

// Static peer reference table. Brackets are checked in order; the last
// bracket has no upper bound.
var peerBrackets = []peerBracket{
	{name: "18-25", maxAge: 25, reference: domain.PeerReference{
		CompositeScore: 45,
		Components: map[domain.Component]float64{
			domain.ComponentSavingsRate:   10,
			domain.ComponentDebtToIncome:  80,
			domain.ComponentEmergencyFund: 25,
		},
	}},
	{name: "26-35", maxAge: 35, reference: domain.PeerReference{
		CompositeScore: 52,
		Components: map[domain.Component]float64{
			domain.ComponentSavingsRate:   12,
			domain.ComponentDebtToIncome:  72,
			domain.ComponentEmergencyFund: 40,
		},
	}},
	{name: "36-50", maxAge: 50, reference: domain.PeerReference{
		CompositeScore: 58,
		Components: map[domain.Component]float64{
			domain.ComponentSavingsRate:   15,
			domain.ComponentDebtToIncome:  70,
			domain.ComponentEmergencyFund: 55,
		},
	}},
	{name: "50+", reference: domain.PeerReference{
		CompositeScore: 63,
		Components: map[domain.Component]float64{
			domain.ComponentSavingsRate:   18,
			domain.ComponentDebtToIncome:  82,
			domain.ComponentEmergencyFund: 70,
		},
	}},
}

// BenchmarkComponents are the sub-scores compared against peers.
var BenchmarkComponents = []domain.Component{
	domain.ComponentSavingsRate,
	domain.ComponentDebtToIncome,
	domain.ComponentEmergencyFund,
}

// PeerBracket returns the bracket name for age.
func PeerBracket(age int) string {
	return bracketFor(age).name
}

func bracketFor(age int) peerBracket {
	for _, b := range peerBrackets[:len(peerBrackets)-1] {
		if age <= b.maxAge {
			return b
		}
	}
	return peerBrackets[len(peerBrackets)-1]
}

// Benchmark compares a result with the reference values of the user's age
// bracket. Deltas are user minus reference.
func Benchmark(age int, result domain.ScoreResult) domain.PeerComparison {
	b := bracketFor(age)

	reference := domain.PeerReference{
		CompositeScore: b.reference.CompositeScore,
		Components:     make(map[domain.Component]float64, len(b.reference.Components)),
	}
	deltas := make(map[domain.Component]float64, len(BenchmarkComponents))
	for _, c := range BenchmarkComponents {
		ref := b.reference.Components[c]
		reference.Components[c] = ref
		deltas[c] = result.Components.Get(c) - ref
	}

	return domain.PeerComparison{
		Bracket:         b.name,
		Reference:       reference,
		CompositeDelta:  result.CompositeScore - b.reference.CompositeScore,
		ComponentDeltas: deltas,
	}
}
