// Package worker scores profiles asynchronously from the event bus and in
// bounded-concurrency batches.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opensource-finance/fhi/internal/assessment"
	"github.com/opensource-finance/fhi/internal/domain"
)

// GlobalTenantID is the subscription tenant used when no tenants are configured.
const GlobalTenantID = "_global"

// DefaultConcurrency bounds batch scoring when none is configured.
const DefaultConcurrency = 8

// Assessor scores and records one profile.
type Assessor interface {
	Assess(ctx context.Context, tenantID, userID string, p domain.Profile) (*domain.Assessment, error)
}

// Worker consumes score requests from the event bus.
type Worker struct {
	bus      domain.EventBus
	assessor Assessor

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs to subscribe for; empty subscribes GlobalTenantID.
	TenantIDs []string
}

// New creates a worker.
func New(bus domain.EventBus, assessor Assessor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		assessor: assessor,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to domain.TopicScoreRequested for each tenant. A tenant
// that fails to subscribe is logged and skipped; Start fails only when no
// subscription succeeds.
func (w *Worker) Start(cfg Config) error {
	tenants := cfg.TenantIDs
	if len(tenants) == 0 {
		tenants = []string{GlobalTenantID}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for _, tenantID := range tenants {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicScoreRequested, w.handler(tenantID))
		if err != nil {
			zap.L().Error("failed to start worker for tenant", zap.String("tenant_id", tenantID), zap.Error(err))
			lastErr = err
			continue
		}
		w.subscriptions = append(w.subscriptions, sub)
	}
	if len(w.subscriptions) == 0 && lastErr != nil {
		return eris.Wrap(lastErr, "worker: no subscriptions")
	}

	zap.L().Info("workers started",
		zap.Int("tenant_count", len(tenants)),
		zap.String("topic", domain.TopicScoreRequested),
	)
	return nil
}

func (w *Worker) handler(tenantID string) domain.MessageHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		start := time.Now()

		var req assessment.ScoreRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			w.failed.Add(1)
			return eris.Wrapf(err, "worker: decode score request %s", msg.ID)
		}

		// Only the global subscription may route a request to another tenant.
		tenant := tenantID
		if tenantID == GlobalTenantID && req.TenantID != "" {
			tenant = req.TenantID
		}
		if traceID := msg.Metadata[domain.MetaTraceID]; traceID != "" {
			ctx = domain.WithTraceID(ctx, traceID)
		}

		a, err := w.assessor.Assess(ctx, tenant, req.UserID, req.Profile)
		if err != nil {
			w.failed.Add(1)
			return eris.Wrapf(err, "worker: assess request %s", req.RequestID)
		}
		w.processed.Add(1)

		zap.L().Info("score request processed",
			zap.String("tenant_id", tenant),
			zap.String("request_id", req.RequestID),
			zap.String("assessment_id", a.ID),
			zap.Float64("composite", a.Result.CompositeScore),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}
}

// Stop cancels in-flight handlers and unsubscribes.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			zap.L().Error("failed to unsubscribe", zap.String("topic", sub.Topic()), zap.Error(err))
		}
	}
	w.subscriptions = nil

	zap.L().Info("workers stopped")
	return nil
}

// Stats is a snapshot of worker activity.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
