// Package bus provides the event bus used to fan scoring events out to
// subscribers: an in-process channel bus and a NATS-backed bus.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/fhi/internal/domain"
)

var (
	// ErrTenantRequired is returned when a bus call omits the tenant.
	ErrTenantRequired = eris.New("bus: tenantID is required")

	// ErrClosed is returned by operations on a closed bus.
	ErrClosed = eris.New("bus: closed")
)

const source = "fhi"

// New creates an event bus from configuration.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel", "":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, eris.Errorf("bus: unsupported type %q", cfg.Type)
	}
}

// newMessage builds the envelope for a published payload. The trace id, if
// any, travels in the metadata.
func newMessage(ctx context.Context, tenantID, topic string, payload []byte) *domain.Message {
	meta := map[string]string{domain.MetaSource: source}
	if traceID := TraceID(ctx); traceID != "" {
		meta[domain.MetaTraceID] = traceID
	}
	return &domain.Message{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  meta,
		Timestamp: time.Now().UnixNano(),
	}
}

// TraceID returns the trace id of the active otel span, falling back to the
// id stored by domain.WithTraceID when no recording provider is installed.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return domain.TraceIDFromContext(ctx)
}
