package scoring

import "github.com/opensource-finance/fhi/internal/domain"

// WeightVector holds the fixed component weights and the constant offset
// added to the weighted sum. The component weights sum to 0.85 and the
// offset is 15, so clamped components always aggregate into [15, 100].
type WeightVector struct {
	NetWorth      float64 `json:"netWorth"`
	DebtToIncome  float64 `json:"debtToIncome"`
	SavingsRate   float64 `json:"savingsRate"`
	Investment    float64 `json:"investment"`
	EmergencyFund float64 `json:"emergencyFund"`
	BaseOffset    float64 `json:"baseOffset"`
}

// Weights is the only weight vector the engine uses.
var Weights = WeightVector{
	NetWorth:      0.20,
	DebtToIncome:  0.15,
	SavingsRate:   0.15,
	Investment:    0.15,
	EmergencyFund: 0.20,
	BaseOffset:    15.0,
}

// Get returns the weight of component c.
func (w WeightVector) Get(c domain.Component) float64 {
	switch c {
	case domain.ComponentNetWorth:
		return w.NetWorth
	case domain.ComponentDebtToIncome:
		return w.DebtToIncome
	case domain.ComponentSavingsRate:
		return w.SavingsRate
	case domain.ComponentInvestment:
		return w.Investment
	case domain.ComponentEmergencyFund:
		return w.EmergencyFund
	}
	return 0
}

// Sum returns the total of the component weights, excluding the offset.
func (w WeightVector) Sum() float64 {
	var sum float64
	for _, c := range domain.Components {
		sum += w.Get(c)
	}
	return sum
}

// AgeMultipliers normalizes net worth (Alpha) and investments (Beta)
// against annual income for an age bracket.
type AgeMultipliers struct {
	Alpha float64
	Beta  float64
}

// MultipliersFor returns the age bracket multipliers for age.
// Brackets: <30, 30-39, 40-49, >=50.
func MultipliersFor(age int) AgeMultipliers {
	switch {
	case age < 30:
		return AgeMultipliers{Alpha: 2.5, Beta: 2.0}
	case age < 40:
		return AgeMultipliers{Alpha: 3.0, Beta: 3.0}
	case age < 50:
		return AgeMultipliers{Alpha: 3.5, Beta: 4.0}
	default:
		return AgeMultipliers{Alpha: 4.0, Beta: 5.0}
	}
}
