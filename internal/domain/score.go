package domain

// Component identifies one of the five sub-scores of the health index.
type Component string

const (
	ComponentNetWorth      Component = "netWorth"
	ComponentDebtToIncome  Component = "debtToIncome"
	ComponentSavingsRate   Component = "savingsRate"
	ComponentInvestment    Component = "investment"
	ComponentEmergencyFund Component = "emergencyFund"
)

// Components is the fixed enumeration order. Every ordered output
// (tie-breaks, iteration, persistence) follows it.
var Components = []Component{
	ComponentNetWorth,
	ComponentDebtToIncome,
	ComponentSavingsRate,
	ComponentInvestment,
	ComponentEmergencyFund,
}

var componentLabels = map[Component]string{
	ComponentNetWorth:      "Net Worth",
	ComponentDebtToIncome:  "Debt to Income",
	ComponentSavingsRate:   "Savings Rate",
	ComponentInvestment:    "Investment",
	ComponentEmergencyFund: "Emergency Fund",
}

// Label returns a human-readable component name.
func (c Component) Label() string {
	if l, ok := componentLabels[c]; ok {
		return l
	}
	return string(c)
}

// ComponentScores holds the five sub-scores, each in [0, 100].
type ComponentScores struct {
	NetWorth      float64 `json:"netWorth"`
	DebtToIncome  float64 `json:"debtToIncome"`
	SavingsRate   float64 `json:"savingsRate"`
	Investment    float64 `json:"investment"`
	EmergencyFund float64 `json:"emergencyFund"`
}

// Get returns the sub-score for c, or 0 for an unknown component.
func (s ComponentScores) Get(c Component) float64 {
	switch c {
	case ComponentNetWorth:
		return s.NetWorth
	case ComponentDebtToIncome:
		return s.DebtToIncome
	case ComponentSavingsRate:
		return s.SavingsRate
	case ComponentInvestment:
		return s.Investment
	case ComponentEmergencyFund:
		return s.EmergencyFund
	}
	return 0
}

// Map returns the sub-scores keyed by component id.
func (s ComponentScores) Map() map[string]float64 {
	m := make(map[string]float64, len(Components))
	for _, c := range Components {
		m[string(c)] = s.Get(c)
	}
	return m
}

// ScoreResult is the output of scoring one profile.
type ScoreResult struct {
	CompositeScore float64         `json:"compositeScore"`
	Components     ComponentScores `json:"components"`
}

// ScenarioDelta describes a what-if perturbation of a baseline profile.
// Percent values are relative changes (10 means +10%); Absolute values are
// added after the percentage is applied.
type ScenarioDelta struct {
	Percent  map[Field]float64 `json:"percent,omitempty" yaml:"percent,omitempty"`
	Absolute map[Field]float64 `json:"absolute,omitempty" yaml:"absolute,omitempty"`
}

// IsZero reports whether the delta references no fields.
func (d ScenarioDelta) IsZero() bool {
	return len(d.Percent) == 0 && len(d.Absolute) == 0
}
