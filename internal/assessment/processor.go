// Package assessment turns a scoring request into a persisted, published
// assessment: cache lookup, scoring, tier, peer benchmark, achievements,
// persistence and events.
package assessment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/opensource-finance/fhi/internal/bus"
	"github.com/opensource-finance/fhi/internal/domain"
	"github.com/opensource-finance/fhi/internal/rules"
	"github.com/opensource-finance/fhi/internal/scoring"
)

// EngineVersion is recorded on every assessment.
const EngineVersion = "fhi-1.0"

const defaultResultTTL = time.Hour

var tracer = otel.Tracer("github.com/opensource-finance/fhi/internal/assessment")

// AchievementEvaluator evaluates achievement rules against a score.
type AchievementEvaluator interface {
	Evaluate(ctx context.Context, in rules.Input) ([]domain.Achievement, error)
}

// Processor runs the assessment pipeline. Every dependency is optional;
// a zero-dependency Processor scores without caching, persisting or publishing.
type Processor struct {
	repo         domain.Repository
	cache        domain.Cache
	bus          domain.EventBus
	achievements AchievementEvaluator
	resultTTL    time.Duration
	now          func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithRepository persists assessments.
func WithRepository(r domain.Repository) Option {
	return func(p *Processor) { p.repo = r }
}

// WithCache caches score results by profile fingerprint for ttl.
func WithCache(c domain.Cache, ttl time.Duration) Option {
	return func(p *Processor) {
		p.cache = c
		if ttl > 0 {
			p.resultTTL = ttl
		}
	}
}

// WithBus publishes assessment events.
func WithBus(b domain.EventBus) Option {
	return func(p *Processor) { p.bus = b }
}

// WithAchievements evaluates achievement rules for each assessment.
func WithAchievements(a AchievementEvaluator) Option {
	return func(p *Processor) { p.achievements = a }
}

// WithClock overrides the assessment timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		resultTTL: defaultResultTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Assess validates and scores a profile and records the outcome.
// A profile with validation errors returns a *scoring.ValidationError and
// nothing is cached, stored or published. When a repository is configured
// and the save fails, the error is returned and no events are published.
func (p *Processor) Assess(ctx context.Context, tenantID, userID string, profile domain.Profile) (*domain.Assessment, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "assessment.Assess", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("user_id", userID))

	validation := scoring.Validate(profile)
	if err := validation.Err(); err != nil {
		span.SetAttributes(attribute.Bool("profile.valid", false))
		return nil, err
	}

	fingerprint := profile.Fingerprint()
	result, cached := p.cachedResult(ctx, tenantID, fingerprint)
	if !cached {
		result = scoring.Result(profile)
		p.storeResult(ctx, tenantID, fingerprint, result)
	}

	a := &domain.Assessment{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    userID,
		Profile:   profile,
		Result:    result,
		Tier:      scoring.Tier(result.CompositeScore),
		Warnings:  validation.Warnings,
		Benchmark: scoring.Benchmark(profile.Age, result),
		CreatedAt: p.now().UTC(),
		Metadata: domain.AssessmentMetadata{
			Fingerprint:   fingerprint,
			Cached:        cached,
			EngineVersion: EngineVersion,
		},
	}
	a.Metadata.TraceID = bus.TraceID(ctx)

	a.Achievements = []domain.Achievement{}
	if p.achievements != nil {
		unlocked, err := p.achievements.Evaluate(ctx, rules.Input{Profile: profile, Result: result})
		if err != nil {
			return nil, eris.Wrap(err, "assessment: evaluate achievements")
		}
		a.Achievements = unlocked
	}

	a.Metadata.TotalMs = time.Since(start).Milliseconds()

	if p.repo != nil {
		if err := p.repo.SaveAssessment(ctx, tenantID, a); err != nil {
			log.Error("failed to save assessment", zap.String("assessment_id", a.ID), zap.Error(err))
			return nil, eris.Wrapf(err, "assessment: save %s", a.ID)
		}
	}

	p.publish(ctx, tenantID, domain.TopicScoreComputed, ScoreComputed{
		AssessmentID:   a.ID,
		UserID:         userID,
		CompositeScore: result.CompositeScore,
		Tier:           a.Tier,
		Fingerprint:    fingerprint,
		Cached:         cached,
	})
	for _, ach := range a.Achievements {
		p.publish(ctx, tenantID, domain.TopicAchievementUnlocked, AchievementUnlocked{
			AssessmentID: a.ID,
			UserID:       userID,
			RuleID:       ach.RuleID,
			Name:         ach.Name,
		})
	}

	span.SetAttributes(
		attribute.Float64("score.composite", result.CompositeScore),
		attribute.Bool("score.cached", cached),
	)
	log.Debug("assessment completed",
		zap.String("assessment_id", a.ID),
		zap.Float64("composite", result.CompositeScore),
		zap.String("tier", string(a.Tier)),
		zap.Bool("cached", cached),
		zap.Int64("total_ms", a.Metadata.TotalMs),
	)
	return a, nil
}

// Simulate scores a baseline and its what-if scenario side by side.
// Deltas that reference non-adjustable fields are rejected.
func (p *Processor) Simulate(ctx context.Context, tenantID string, baseline domain.Profile, delta domain.ScenarioDelta) (*domain.Simulation, error) {
	ctx, span := tracer.Start(ctx, "assessment.Simulate", trace.WithAttributes(
		attribute.String("tenant.id", tenantID),
	))
	defer span.End()

	if err := scoring.ValidateDelta(delta); err != nil {
		return nil, err
	}

	sim, err := scoring.Simulate(baseline, delta)
	if err != nil {
		return nil, err
	}
	sim.ID = uuid.NewString()

	p.publish(ctx, tenantID, domain.TopicScenarioSimulated, ScenarioSimulated{
		SimulationID:    sim.ID,
		BaselineScore:   sim.Baseline.CompositeScore,
		ScenarioScore:   sim.Scenario.CompositeScore,
		CompositeChange: sim.CompositeChange,
	})

	span.SetAttributes(attribute.Float64("score.change", sim.CompositeChange))
	return &sim, nil
}

func (p *Processor) cachedResult(ctx context.Context, tenantID, fingerprint string) (domain.ScoreResult, bool) {
	if p.cache == nil {
		return domain.ScoreResult{}, false
	}
	result, err := p.cache.GetResult(ctx, tenantID, fingerprint)
	if err != nil {
		zap.L().Warn("score cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return domain.ScoreResult{}, false
	}
	if result == nil {
		return domain.ScoreResult{}, false
	}
	return *result, true
}

func (p *Processor) storeResult(ctx context.Context, tenantID, fingerprint string, result domain.ScoreResult) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetResult(ctx, tenantID, fingerprint, &result, p.resultTTL); err != nil {
		zap.L().Warn("score cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// publish is best effort; a failed publish never fails the request.
func (p *Processor) publish(ctx context.Context, tenantID, topic string, event any) {
	if p.bus == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("failed to encode event", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := p.bus.Publish(ctx, tenantID, topic, payload); err != nil {
		zap.L().Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}
