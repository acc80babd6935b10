// Package repository persists assessments and achievement rules with
// database/sql on SQLite or PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/fhi/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// History limits for ListAssessments.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// SQLRepository implements domain.Repository using database/sql.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New opens the configured database and applies the schema.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite", "":
		cfg.Driver = "sqlite"
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, eris.Errorf("repository: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{db: db, driver: cfg.Driver}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return eris.Wrap(err, "repository: migrate")
		}
	}
	return nil
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return eris.Wrap(ErrInvalidInput, "tenantID is required")
	}
	return nil
}

// SaveAssessment stores an assessment. Assessments are immutable; saving an
// existing id fails.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.Assessment) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if a == nil || a.ID == "" {
		return eris.Wrap(ErrInvalidInput, "assessment id is required")
	}

	cols, err := encodeJSON(a.Profile, a.Result, nonNil(a.Warnings), a.Benchmark, nonNilAchievements(a.Achievements), a.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessments (
			id, tenant_id, user_id, profile, result, composite, tier,
			warnings, benchmark, achievements, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, r.rebind(query),
		a.ID, tenantID, a.UserID, cols[0], cols[1], a.Result.CompositeScore, string(a.Tier),
		cols[2], cols[3], cols[4], cols[5], a.CreatedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "repository: save assessment %s", a.ID)
	}
	return nil
}

const assessmentColumns = `
	id, tenant_id, user_id, profile, result, tier,
	warnings, benchmark, achievements, metadata, created_at
`

// GetAssessment retrieves one assessment.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE tenant_id = ? AND id = ?`

	a, err := scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "repository: get assessment %s", id)
	}
	return a, nil
}

// ListAssessments returns a user's most recent assessments, newest first.
func (r *SQLRepository) ListAssessments(ctx context.Context, tenantID string, userID string, limit int) ([]*domain.Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE tenant_id = ? AND user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	return r.queryAssessments(ctx, query, tenantID, userID, limit)
}

// ListAssessmentsSince returns a user's assessments created at or after
// since, oldest first.
func (r *SQLRepository) ListAssessmentsSince(ctx context.Context, tenantID string, userID string, since time.Time) ([]*domain.Assessment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE tenant_id = ? AND user_id = ? AND created_at >= ?
		ORDER BY created_at ASC, id ASC
	`
	return r.queryAssessments(ctx, query, tenantID, userID, since.UTC())
}

func (r *SQLRepository) queryAssessments(ctx context.Context, query string, args ...any) ([]*domain.Assessment, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list assessments")
	}
	defer rows.Close()

	assessments := []*domain.Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "repository: scan assessment")
		}
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (*domain.Assessment, error) {
	var (
		a                                                        domain.Assessment
		tier                                                     string
		profile, result, warnings, benchmark, achievements, meta string
	)
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.UserID, &profile, &result, &tier,
		&warnings, &benchmark, &achievements, &meta, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.Tier = domain.HealthTier(tier)
	a.CreatedAt = a.CreatedAt.UTC()

	if err := decodeJSON(
		column{profile, &a.Profile},
		column{result, &a.Result},
		column{warnings, &a.Warnings},
		column{benchmark, &a.Benchmark},
		column{achievements, &a.Achievements},
		column{meta, &a.Metadata},
	); err != nil {
		return nil, eris.Wrapf(err, "assessment %s", a.ID)
	}
	return &a, nil
}

// SaveAchievementRule inserts or updates a rule. CreatedAt is preserved on update.
func (r *SQLRepository) SaveAchievementRule(ctx context.Context, tenantID string, rule *domain.AchievementRule) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if rule == nil || rule.ID == "" {
		return eris.Wrap(ErrInvalidInput, "rule id is required")
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO achievement_rules (
			id, tenant_id, name, description, version, expression, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			version = excluded.version,
			expression = excluded.expression,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description, rule.Version, rule.Expression, enabled, now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "repository: save achievement rule %s", rule.ID)
	}
	return nil
}

const ruleColumns = `id, tenant_id, name, description, version, expression, enabled, created_at, updated_at`

// GetAchievementRule retrieves one rule, enabled or not.
func (r *SQLRepository) GetAchievementRule(ctx context.Context, tenantID string, ruleID string) (*domain.AchievementRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM achievement_rules WHERE tenant_id = ? AND id = ?`

	rule, err := scanRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "repository: get achievement rule %s", ruleID)
	}
	return rule, nil
}

// ListAchievementRules returns every rule of the tenant ordered by id.
func (r *SQLRepository) ListAchievementRules(ctx context.Context, tenantID string) ([]*domain.AchievementRule, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM achievement_rules WHERE tenant_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "repository: list achievement rules")
	}
	defer rows.Close()

	rules := []*domain.AchievementRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, eris.Wrap(err, "repository: scan achievement rule")
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(row scanner) (*domain.AchievementRule, error) {
	var (
		rule        domain.AchievementRule
		description sql.NullString
		enabled     int
	)
	if err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &description, &rule.Version,
		&rule.Expression, &enabled, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.Description = description.String
	rule.Enabled = enabled == 1
	return &rule, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
		n++
	}
	return b.String()
}

func encodeJSON(values ...any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "repository: encode column")
		}
		out[i] = string(b)
	}
	return out, nil
}

type column struct {
	raw  string
	dest any
}

func decodeJSON(cols ...column) error {
	for _, c := range cols {
		if c.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c.raw), c.dest); err != nil {
			return eris.Wrap(err, "repository: decode column")
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilAchievements(a []domain.Achievement) []domain.Achievement {
	if a == nil {
		return []domain.Achievement{}
	}
	return a
}
