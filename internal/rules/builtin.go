package rules

import "github.com/opensource-finance/fhi/internal/domain"

// BuiltinAchievements returns the default achievement set, seeded into a
// tenant's repository when it has no rules of its own.
func BuiltinAchievements(tenantID string) []*domain.AchievementRule {
	rule := func(id, name, desc, expr string) *domain.AchievementRule {
		return &domain.AchievementRule{
			ID:          id,
			TenantID:    tenantID,
			Name:        name,
			Description: desc,
			Version:     "1.0.0",
			Expression:  expr,
			Enabled:     true,
		}
	}

	return []*domain.AchievementRule{
		rule("debt-free", "Debt Free", "No monthly debt payments",
			`profile.monthlyDebtPayment == 0.0`),
		rule("emergency-ready", "Emergency Ready", "Six months of expenses set aside",
			`components.emergencyFund >= 100.0`),
		rule("saver-20", "Super Saver", "Saving at least 20% of income",
			`components.savingsRate >= 20.0`),
		rule("fhi-70", "Healthy", "Composite score of 70 or more",
			`score >= 70.0`),
		rule("fhi-85", "Thriving", "Composite score of 85 or more",
			`score >= 85.0`),
		rule("investor", "Investor", "Investments at half the age-adjusted target",
			`components.investment >= 50.0`),
	}
}
