package worker

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/fhi/internal/assessment"
	"github.com/opensource-finance/fhi/internal/domain"
)

// BatchItem is the outcome for one request of a batch, in request order.
// Exactly one of Assessment and Error is set.
type BatchItem struct {
	Index      int                `json:"index"`
	RequestID  string             `json:"requestId,omitempty"`
	Assessment *domain.Assessment `json:"assessment,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// ScoreBatch assesses reqs with at most concurrency in flight. A request
// that fails is reported in its item and does not stop the batch; only
// context cancellation fails the whole call.
func ScoreBatch(ctx context.Context, assessor Assessor, tenantID string, reqs []assessment.ScoreRequest, concurrency int) ([]BatchItem, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	items := make([]BatchItem, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = BatchItem{Index: i, RequestID: req.RequestID}

			tenant := tenantID
			if req.TenantID != "" {
				tenant = req.TenantID
			}
			a, err := assessor.Assess(gctx, tenant, req.UserID, req.Profile)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Assessment = a
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "worker: score batch")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "worker: score batch")
	}
	return items, nil
}
