package repository

// Schema definitions, compatible with both SQLite and PostgreSQL.
// DOUBLE PRECISION keeps composite scores at float64 on postgres, where
// REAL is single precision.

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    profile TEXT NOT NULL,
    result TEXT NOT NULL,
    composite DOUBLE PRECISION NOT NULL,
    tier TEXT NOT NULL,
    warnings TEXT NOT NULL,
    benchmark TEXT NOT NULL,
    achievements TEXT NOT NULL,
    metadata TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_user ON assessments(tenant_id, user_id, created_at);
`

const schemaAchievementRules = `
CREATE TABLE IF NOT EXISTS achievement_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_achievement_rules_tenant ON achievement_rules(tenant_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAssessments,
		schemaAchievementRules,
	}
}
