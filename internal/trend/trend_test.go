package trend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fhi/internal/domain"
	"github.com/opensource-finance/fhi/internal/repository"
)

var now = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func assessment(id string, composite, savings float64, at time.Time) *domain.Assessment {
	return &domain.Assessment{
		ID:     id,
		UserID: "user-1",
		Result: domain.ScoreResult{
			CompositeScore: composite,
			Components:     domain.ComponentScores{SavingsRate: savings},
		},
		Tier:      domain.TierStable,
		CreatedAt: at,
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		direction Direction
		change    float64
	}{
		{"empty", nil, DirectionInsufficient, 0},
		{"single", []float64{50}, DirectionInsufficient, 0},
		{"improving", []float64{40, 45, 52}, DirectionImproving, 12},
		{"declining", []float64{60, 58, 51}, DirectionDeclining, -9},
		{"flat", []float64{50, 70, 50.2}, DirectionFlat, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var history []*domain.Assessment
			for i, s := range tt.scores {
				history = append(history, assessment(string(rune('a'+i)), s, s/2, now.Add(time.Duration(i)*time.Hour)))
			}

			tr := Summarize("user-1", now.Add(-time.Hour), history)
			assert.Equal(t, len(tt.scores), tr.Count)
			assert.Equal(t, tt.direction, tr.Direction)
			assert.InDelta(t, tt.change, tr.Change, 1e-9)
			assert.NotNil(t, tr.ComponentChange)

			if len(tt.scores) == 0 {
				assert.Nil(t, tr.First)
				assert.Nil(t, tr.Latest)
				return
			}
			assert.Equal(t, "a", tr.First.AssessmentID)
			assert.InDelta(t, tt.change/2, tr.ComponentChange[domain.ComponentSavingsRate], 1e-9)
		})
	}

	t.Run("best and average", func(t *testing.T) {
		history := []*domain.Assessment{
			assessment("a", 40, 0, now),
			assessment("b", 70, 0, now.Add(time.Hour)),
			assessment("c", 55, 0, now.Add(2*time.Hour)),
		}
		tr := Summarize("user-1", now, history)
		assert.Equal(t, "b", tr.Best.AssessmentID)
		assert.InDelta(t, 55, tr.Average, 1e-9)
		assert.Equal(t, "c", tr.Latest.AssessmentID)
	})
}

type failingHistory struct{}

func (failingHistory) ListAssessmentsSince(context.Context, string, string, time.Time) ([]*domain.Assessment, error) {
	return nil, errors.New("db down")
}

func TestServiceTrend(t *testing.T) {
	ctx := context.Background()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "trend.db"),
	})
	require.NoError(t, err)
	defer repo.Close()

	old := assessment("old", 30, 5, now.Add(-100*24*time.Hour))
	mid := assessment("mid", 45, 10, now.Add(-10*24*time.Hour))
	recent := assessment("recent", 55, 20, now.Add(-24*time.Hour))
	for _, a := range []*domain.Assessment{old, mid, recent} {
		require.NoError(t, repo.SaveAssessment(ctx, "tenant-001", a))
	}

	svc := NewService(repo)
	svc.now = func() time.Time { return now }

	t.Run("default window excludes old history", func(t *testing.T) {
		tr, err := svc.Trend(ctx, "tenant-001", "user-1", 0)
		require.NoError(t, err)
		assert.Equal(t, 2, tr.Count)
		assert.Equal(t, "mid", tr.First.AssessmentID)
		assert.Equal(t, "recent", tr.Latest.AssessmentID)
		assert.InDelta(t, 10, tr.Change, 1e-9)
		assert.InDelta(t, 10, tr.ComponentChange[domain.ComponentSavingsRate], 1e-9)
		assert.Equal(t, DirectionImproving, tr.Direction)
	})

	t.Run("wide window", func(t *testing.T) {
		tr, err := svc.Trend(ctx, "tenant-001", "user-1", 365*24*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 3, tr.Count)
		assert.Equal(t, "old", tr.First.AssessmentID)
	})

	t.Run("other tenant sees nothing", func(t *testing.T) {
		tr, err := svc.Trend(ctx, "tenant-002", "user-1", 0)
		require.NoError(t, err)
		assert.Zero(t, tr.Count)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := svc.Trend(ctx, "tenant-001", "", 0)
		assert.ErrorIs(t, err, ErrUserRequired)

		_, err = NewService(failingHistory{}).Trend(ctx, "tenant-001", "user-1", time.Hour)
		assert.Error(t, err)
	})
}
