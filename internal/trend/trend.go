// Package trend summarizes how a user's health index moved over a window of
// stored assessments.
package trend

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/fhi/internal/domain"
)

// DefaultWindow is used when no window is requested.
const DefaultWindow = 90 * 24 * time.Hour

// flatThreshold is the composite change below which a trend counts as flat.
const flatThreshold = 0.5

// Direction labels the overall movement of a trend.
type Direction string

const (
	DirectionImproving    Direction = "improving"
	DirectionDeclining    Direction = "declining"
	DirectionFlat         Direction = "flat"
	DirectionInsufficient Direction = "insufficient_data"
)

// ErrUserRequired is returned when no user id is given.
var ErrUserRequired = eris.New("trend: userID is required")

// History reads stored assessments.
type History interface {
	ListAssessmentsSince(ctx context.Context, tenantID string, userID string, since time.Time) ([]*domain.Assessment, error)
}

// Point is one assessment on a trend line.
type Point struct {
	AssessmentID   string            `json:"assessmentId"`
	CreatedAt      time.Time         `json:"createdAt"`
	CompositeScore float64           `json:"compositeScore"`
	Tier           domain.HealthTier `json:"tier"`
}

// Trend summarizes a user's assessments within a window.
type Trend struct {
	UserID          string                       `json:"userId"`
	Since           time.Time                    `json:"since"`
	Count           int                          `json:"count"`
	First           *Point                       `json:"first,omitempty"`
	Latest          *Point                       `json:"latest,omitempty"`
	Best            *Point                       `json:"best,omitempty"`
	Average         float64                      `json:"average"`
	Change          float64                      `json:"change"`
	ComponentChange map[domain.Component]float64 `json:"componentChange"`
	Direction       Direction                    `json:"direction"`
}

// Service computes trends from assessment history.
type Service struct {
	history History
	now     func() time.Time
}

// NewService creates a trend service.
func NewService(history History) *Service {
	return &Service{history: history, now: time.Now}
}

// Trend summarizes the user's assessments created within window of now.
func (s *Service) Trend(ctx context.Context, tenantID, userID string, window time.Duration) (*Trend, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if window <= 0 {
		window = DefaultWindow
	}

	since := s.now().UTC().Add(-window)
	assessments, err := s.history.ListAssessmentsSince(ctx, tenantID, userID, since)
	if err != nil {
		return nil, eris.Wrap(err, "trend: load history")
	}
	return Summarize(userID, since, assessments), nil
}

// Summarize builds a trend from assessments ordered oldest first.
func Summarize(userID string, since time.Time, assessments []*domain.Assessment) *Trend {
	t := &Trend{
		UserID:          userID,
		Since:           since,
		Count:           len(assessments),
		ComponentChange: make(map[domain.Component]float64, len(domain.Components)),
		Direction:       DirectionInsufficient,
	}
	if len(assessments) == 0 {
		return t
	}

	first, latest := assessments[0], assessments[len(assessments)-1]
	t.First = point(first)
	t.Latest = point(latest)

	var sum float64
	best := first
	for _, a := range assessments {
		sum += a.Result.CompositeScore
		if a.Result.CompositeScore > best.Result.CompositeScore {
			best = a
		}
	}
	t.Best = point(best)
	t.Average = sum / float64(len(assessments))

	t.Change = latest.Result.CompositeScore - first.Result.CompositeScore
	for _, c := range domain.Components {
		t.ComponentChange[c] = latest.Result.Components.Get(c) - first.Result.Components.Get(c)
	}

	if len(assessments) < 2 {
		return t
	}
	switch {
	case math.Abs(t.Change) < flatThreshold:
		t.Direction = DirectionFlat
	case t.Change > 0:
		t.Direction = DirectionImproving
	default:
		t.Direction = DirectionDeclining
	}
	return t
}

func point(a *domain.Assessment) *Point {
	return &Point{
		AssessmentID:   a.ID,
		CreatedAt:      a.CreatedAt,
		CompositeScore: a.Result.CompositeScore,
		Tier:           a.Tier,
	}
}
