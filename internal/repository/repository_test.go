package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fhi/internal/domain"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "fhi-test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testAssessment(id, user string, composite float64, at time.Time) *domain.Assessment {
	return &domain.Assessment{
		ID:       id,
		TenantID: "tenant-001",
		UserID:   user,
		Profile: domain.Profile{
			Age:            24,
			MonthlyIncome:  50000,
			NetWorth:       200000,
			MonthlySavings: 10000,
		},
		Result: domain.ScoreResult{
			CompositeScore: composite,
			Components:     domain.ComponentScores{SavingsRate: 20, DebtToIncome: 90},
		},
		Tier:     domain.TierFragile,
		Warnings: []string{"monthly expenses exceed monthly income"},
		Benchmark: domain.PeerComparison{
			Bracket:         "18-25",
			CompositeDelta:  composite - 45,
			ComponentDeltas: map[domain.Component]float64{domain.ComponentSavingsRate: 10},
		},
		Achievements: []domain.Achievement{{RuleID: "saver-20", Name: "Super Saver"}},
		Metadata:     domain.AssessmentMetadata{Fingerprint: "fp-" + id, EngineVersion: "test"},
		CreatedAt:    at,
	}
}

func TestAssessments(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	const tenant = "tenant-001"
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Ping(ctx))

	t.Run("save and get", func(t *testing.T) {
		want := testAssessment("a-1", "user-1", 42.083333333333336, base)
		require.NoError(t, repo.SaveAssessment(ctx, tenant, want))

		got, err := repo.GetAssessment(ctx, tenant, "a-1")
		require.NoError(t, err)
		assert.Equal(t, want.Profile, got.Profile)
		assert.Equal(t, want.Result, got.Result)
		assert.Equal(t, want.Tier, got.Tier)
		assert.Equal(t, want.Warnings, got.Warnings)
		assert.Equal(t, want.Benchmark, got.Benchmark)
		assert.Equal(t, want.Achievements, got.Achievements)
		assert.Equal(t, want.Metadata, got.Metadata)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, tenant, got.TenantID)
		assert.Equal(t, "user-1", got.UserID)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := repo.SaveAssessment(ctx, tenant, testAssessment("a-1", "user-1", 50, base))
		assert.Error(t, err)
	})

	t.Run("not found and tenant isolation", func(t *testing.T) {
		_, err := repo.GetAssessment(ctx, tenant, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.GetAssessment(ctx, "tenant-002", "a-1")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.GetAssessment(ctx, "", "a-1")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("history", func(t *testing.T) {
		for i, score := range []float64{45, 50, 55} {
			a := testAssessment("h-"+string(rune('a'+i)), "user-2", score, base.Add(time.Duration(i)*24*time.Hour))
			require.NoError(t, repo.SaveAssessment(ctx, tenant, a))
		}
		require.NoError(t, repo.SaveAssessment(ctx, tenant, testAssessment("other", "user-3", 99, base)))

		recent, err := repo.ListAssessments(ctx, tenant, "user-2", 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "h-c", recent[0].ID)
		assert.Equal(t, "h-b", recent[1].ID)

		all, err := repo.ListAssessments(ctx, tenant, "user-2", 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		since, err := repo.ListAssessmentsSince(ctx, tenant, "user-2", base.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, since, 2)
		assert.Equal(t, "h-b", since[0].ID)
		assert.Equal(t, "h-c", since[1].ID)

		none, err := repo.ListAssessments(ctx, "tenant-002", "user-2", 10)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestAchievementRules(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	const tenant = "tenant-001"

	rule := &domain.AchievementRule{
		ID:          "saver-20",
		Name:        "Super Saver",
		Description: "Saving at least 20% of income",
		Version:     "1.0.0",
		Expression:  "components.savingsRate >= 20.0",
		Enabled:     true,
	}
	require.NoError(t, repo.SaveAchievementRule(ctx, tenant, rule))

	got, err := repo.GetAchievementRule(ctx, tenant, "saver-20")
	require.NoError(t, err)
	assert.Equal(t, rule.Expression, got.Expression)
	assert.Equal(t, rule.Description, got.Description)
	assert.True(t, got.Enabled)
	assert.False(t, got.CreatedAt.IsZero())

	t.Run("upsert", func(t *testing.T) {
		updated := *rule
		updated.Expression = "components.savingsRate >= 25.0"
		updated.Version = "1.1.0"
		updated.Enabled = false
		require.NoError(t, repo.SaveAchievementRule(ctx, tenant, &updated))

		got, err := repo.GetAchievementRule(ctx, tenant, "saver-20")
		require.NoError(t, err)
		assert.Equal(t, "components.savingsRate >= 25.0", got.Expression)
		assert.Equal(t, "1.1.0", got.Version)
		assert.False(t, got.Enabled)
	})

	t.Run("list ordered by id", func(t *testing.T) {
		require.NoError(t, repo.SaveAchievementRule(ctx, tenant, &domain.AchievementRule{
			ID: "debt-free", Name: "Debt Free", Version: "1.0.0", Expression: "true", Enabled: true,
		}))

		rules, err := repo.ListAchievementRules(ctx, tenant)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, "debt-free", rules[0].ID)
		assert.Equal(t, "saver-20", rules[1].ID)

		other, err := repo.ListAchievementRules(ctx, "tenant-002")
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("validation", func(t *testing.T) {
		assert.ErrorIs(t, repo.SaveAchievementRule(ctx, tenant, &domain.AchievementRule{}), ErrInvalidInput)
		assert.ErrorIs(t, repo.SaveAchievementRule(ctx, "", rule), ErrInvalidInput)

		_, err := repo.GetAchievementRule(ctx, tenant, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: "postgres"}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &SQLRepository{driver: "sqlite"}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(domain.RepositoryConfig{PostgresUser: "fhi", PostgresPassword: "secret"})
	assert.Equal(t, "host=localhost port=5432 user=fhi password=secret dbname=fhi sslmode=disable", dsn)
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	assert.Error(t, err)
}
