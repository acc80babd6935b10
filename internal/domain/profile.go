package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Profile is an immutable snapshot of one scoring request.
// Monetary fields are monthly figures except TotalInvestments, NetWorth and
// EmergencyFund, which are balances. A what-if variant is always a new Profile.
type Profile struct {
	Age                int     `json:"age" yaml:"age" csv:"age"`
	MonthlyIncome      float64 `json:"monthlyIncome" yaml:"monthlyIncome" csv:"monthly_income"`
	MonthlyExpenses    float64 `json:"monthlyExpenses" yaml:"monthlyExpenses" csv:"monthly_expenses"`
	MonthlySavings     float64 `json:"monthlySavings" yaml:"monthlySavings" csv:"monthly_savings"`
	MonthlyDebtPayment float64 `json:"monthlyDebtPayment" yaml:"monthlyDebtPayment" csv:"monthly_debt_payment"`
	TotalInvestments   float64 `json:"totalInvestments" yaml:"totalInvestments" csv:"total_investments"`
	NetWorth           float64 `json:"netWorth" yaml:"netWorth" csv:"net_worth"`
	EmergencyFund      float64 `json:"emergencyFund" yaml:"emergencyFund" csv:"emergency_fund"`
}

// Field names a numeric Profile field.
type Field string

const (
	FieldMonthlyIncome      Field = "monthlyIncome"
	FieldMonthlyExpenses    Field = "monthlyExpenses"
	FieldMonthlySavings     Field = "monthlySavings"
	FieldMonthlyDebtPayment Field = "monthlyDebtPayment"
	FieldTotalInvestments   Field = "totalInvestments"
	FieldNetWorth           Field = "netWorth"
	FieldEmergencyFund      Field = "emergencyFund"
)

// MonetaryFields lists every monetary field in declaration order.
var MonetaryFields = []Field{
	FieldMonthlyIncome,
	FieldMonthlyExpenses,
	FieldMonthlySavings,
	FieldMonthlyDebtPayment,
	FieldTotalInvestments,
	FieldNetWorth,
	FieldEmergencyFund,
}

// AnnualIncome is MonthlyIncome scaled to twelve months.
func (p Profile) AnnualIncome() float64 {
	return p.MonthlyIncome * 12
}

// Value returns the value of a monetary field. Unknown fields return (0, false).
func (p Profile) Value(f Field) (float64, bool) {
	switch f {
	case FieldMonthlyIncome:
		return p.MonthlyIncome, true
	case FieldMonthlyExpenses:
		return p.MonthlyExpenses, true
	case FieldMonthlySavings:
		return p.MonthlySavings, true
	case FieldMonthlyDebtPayment:
		return p.MonthlyDebtPayment, true
	case FieldTotalInvestments:
		return p.TotalInvestments, true
	case FieldNetWorth:
		return p.NetWorth, true
	case FieldEmergencyFund:
		return p.EmergencyFund, true
	}
	return 0, false
}

// With returns a copy of p with field f set to v. p is not modified.
func (p Profile) With(f Field, v float64) Profile {
	switch f {
	case FieldMonthlyIncome:
		p.MonthlyIncome = v
	case FieldMonthlyExpenses:
		p.MonthlyExpenses = v
	case FieldMonthlySavings:
		p.MonthlySavings = v
	case FieldMonthlyDebtPayment:
		p.MonthlyDebtPayment = v
	case FieldTotalInvestments:
		p.TotalInvestments = v
	case FieldNetWorth:
		p.NetWorth = v
	case FieldEmergencyFund:
		p.EmergencyFund = v
	}
	return p
}

// Map returns the monetary fields keyed by field name plus "age".
func (p Profile) Map() map[string]float64 {
	m := make(map[string]float64, len(MonetaryFields)+1)
	for _, f := range MonetaryFields {
		v, _ := p.Value(f)
		m[string(f)] = v
	}
	m["age"] = float64(p.Age)
	return m
}

// Fingerprint is a stable hex digest of the profile's exact bit pattern.
// Two profiles share a fingerprint only if every field is bit-identical,
// which makes it safe as a cache key for deterministic score results.
func (p Profile) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(int64(p.Age)))
	h.Write(buf[:])
	for _, f := range MonetaryFields {
		v, _ := p.Value(f)
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
