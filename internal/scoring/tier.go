package scoring

import "github.com/opensource-finance/fhi/internal/domain"

// Tier maps a composite score to its static health tier.
func Tier(composite float64) domain.HealthTier {
	switch {
	case composite < 40:
		return domain.TierCritical
	case composite < 55:
		return domain.TierFragile
	case composite < 70:
		return domain.TierStable
	case composite < 85:
		return domain.TierHealthy
	default:
		return domain.TierThriving
	}
}
