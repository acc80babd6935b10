package assessment

import "github.com/opensource-finance/fhi/internal/domain"

// ScoreRequest is the payload of domain.TopicScoreRequested.
// TenantID overrides the subscription tenant when set.
type ScoreRequest struct {
	RequestID string         `json:"requestId,omitempty"`
	TenantID  string         `json:"tenantId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Profile   domain.Profile `json:"profile"`
}

// ScoreComputed is the payload of domain.TopicScoreComputed.
type ScoreComputed struct {
	AssessmentID   string            `json:"assessmentId"`
	UserID         string            `json:"userId,omitempty"`
	CompositeScore float64           `json:"compositeScore"`
	Tier           domain.HealthTier `json:"tier"`
	Fingerprint    string            `json:"fingerprint"`
	Cached         bool              `json:"cached"`
}

// AchievementUnlocked is the payload of domain.TopicAchievementUnlocked.
type AchievementUnlocked struct {
	AssessmentID string `json:"assessmentId"`
	UserID       string `json:"userId,omitempty"`
	RuleID       string `json:"ruleId"`
	Name         string `json:"name"`
}

// ScenarioSimulated is the payload of domain.TopicScenarioSimulated.
type ScenarioSimulated struct {
	SimulationID    string  `json:"simulationId"`
	BaselineScore   float64 `json:"baselineScore"`
	ScenarioScore   float64 `json:"scenarioScore"`
	CompositeChange float64 `json:"compositeChange"`
}
