package domain

import (
	"time"
)

// Assessment is a persisted scoring event for one user.
type Assessment struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenantId"`
	UserID    string      `json:"userId,omitempty"`
	Profile   Profile     `json:"profile"`
	Result    ScoreResult `json:"result"`
	Tier      HealthTier  `json:"tier"`
	Warnings  []string    `json:"warnings,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`

	// Peer benchmark for the user's age bracket
	Benchmark PeerComparison `json:"benchmark"`

	// Achievement rules satisfied by this result
	Achievements []Achievement `json:"achievements,omitempty"`

	Metadata AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID       string `json:"traceId,omitempty"`
	Fingerprint   string `json:"fingerprint"`
	Cached        bool   `json:"cached"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
}

// HealthTier is a static label for a composite score range.
type HealthTier string

const (
	TierCritical HealthTier = "critical"
	TierFragile  HealthTier = "fragile"
	TierStable   HealthTier = "stable"
	TierHealthy  HealthTier = "healthy"
	TierThriving HealthTier = "thriving"
)

// PeerComparison holds signed differences (user minus reference) between a
// score result and the static reference values of an age bracket.
type PeerComparison struct {
	Bracket         string                `json:"bracket"`
	Reference       PeerReference         `json:"reference"`
	CompositeDelta  float64               `json:"compositeDelta"`
	ComponentDeltas map[Component]float64 `json:"componentDeltas"`
}

// PeerReference is one row of the static peer reference table.
type PeerReference struct {
	CompositeScore float64               `json:"compositeScore"`
	Components     map[Component]float64 `json:"components"`
}

// Simulation is a baseline/scenario pair scored side by side.
type Simulation struct {
	ID              string        `json:"id,omitempty"`
	BaselineProfile Profile       `json:"baselineProfile"`
	ScenarioProfile Profile       `json:"scenarioProfile"`
	Delta           ScenarioDelta `json:"delta"`
	Baseline        ScoreResult   `json:"baseline"`
	Scenario        ScoreResult   `json:"scenario"`
	CompositeChange float64       `json:"compositeChange"`
	Improved        []Mover       `json:"improved"`
	Declined        []Mover       `json:"declined"`
	Warnings        []string      `json:"warnings,omitempty"`
}

// Mover is a component whose sub-score changed between two results.
type Mover struct {
	Component Component `json:"component"`
	Delta     float64   `json:"delta"`
}
