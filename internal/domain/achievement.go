package domain

import "time"

// AchievementRule is a CEL expression evaluated against a score result.
// The expression must return a bool; a true result unlocks the achievement.
type AchievementRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression over score, components, profile and age
	Expression string `json:"expression"`

	// Whether rule is active
	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Achievement is an unlocked achievement rule.
type Achievement struct {
	RuleID string `json:"ruleId"`
	Name   string `json:"name"`
}
