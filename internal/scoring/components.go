package scoring

import "github.com/opensource-finance/fhi/internal/domain"

// Months of expenses an emergency fund needs for a full score.
const emergencyTargetMonths = 6

// ScoreComponents evaluates the five component scorers in enumeration order.
// The profile is assumed to be validated; degenerate denominators resolve
// to fixed fallbacks instead of failing.
func ScoreComponents(p domain.Profile) domain.ComponentScores {
	return domain.ComponentScores{
		NetWorth:      NetWorthScore(p),
		DebtToIncome:  DebtToIncomeScore(p),
		SavingsRate:   SavingsRateScore(p),
		Investment:    InvestmentScore(p),
		EmergencyFund: EmergencyFundScore(p),
	}
}

// NetWorthScore compares net worth with alpha(age) years of income.
func NetWorthScore(p domain.Profile) float64 {
	annual := p.AnnualIncome()
	if annual == 0 {
		return 0
	}
	return clamp(p.NetWorth / (annual * MultipliersFor(p.Age).Alpha) * 100)
}

// DebtToIncomeScore is 100 minus the share of income spent on debt.
func DebtToIncomeScore(p domain.Profile) float64 {
	if p.MonthlyIncome == 0 {
		if p.MonthlyDebtPayment == 0 {
			return 100
		}
		return 0
	}
	return 100 - clamp(p.MonthlyDebtPayment/p.MonthlyIncome*100)
}

// SavingsRateScore is the share of income saved each month.
func SavingsRateScore(p domain.Profile) float64 {
	if p.MonthlyIncome == 0 {
		return 0
	}
	return clamp(p.MonthlySavings / p.MonthlyIncome * 100)
}

// InvestmentScore compares investments with beta(age) years of income.
func InvestmentScore(p domain.Profile) float64 {
	annual := p.AnnualIncome()
	if annual == 0 {
		return 0
	}
	return clamp(p.TotalInvestments / (MultipliersFor(p.Age).Beta * annual) * 100)
}

// EmergencyFundScore measures months of expenses covered against a six month target.
func EmergencyFundScore(p domain.Profile) float64 {
	if p.MonthlyExpenses == 0 {
		if p.EmergencyFund > 0 {
			return 100
		}
		return 0
	}
	return clamp(p.EmergencyFund / p.MonthlyExpenses / emergencyTargetMonths * 100)
}

// clamp bounds v to [0, 100]. NaN maps to 0.
func clamp(v float64) float64 {
	switch {
	case v > 100:
		return 100
	case v >= 0:
		return v
	default:
		return 0
	}
}
