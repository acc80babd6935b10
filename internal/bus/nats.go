package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opensource-finance/fhi/internal/domain"
)

// NATSBus is an EventBus on NATS core subjects of the form
// fhi.<tenant>.<topic>. Messages travel as JSON envelopes.
type NATSBus struct {
	mu            sync.Mutex
	conn          *nats.Conn
	subscriptions map[*nats.Subscription]struct{}
}

type natsSubscription struct {
	topic string
	sub   *nats.Subscription
	bus   *NATSBus
}

// NewNATSBus connects to NATS, retrying up to NATSMaxReconnects times.
func NewNATSBus(cfg domain.EventBusConfig) (*NATSBus, error) {
	if cfg.NATSUrl == "" {
		cfg.NATSUrl = nats.DefaultURL
	}
	if cfg.NATSMaxReconnects == 0 {
		cfg.NATSMaxReconnects = 10
	}
	if cfg.NATSReconnectWait == 0 {
		cfg.NATSReconnectWait = 5
	}
	wait := time.Duration(cfg.NATSReconnectWait) * time.Second
	log := zap.L().With(zap.String("component", "nats"))

	opts := []nats.Option{
		nats.Name(source),
		nats.MaxReconnects(cfg.NATSMaxReconnects),
		nats.ReconnectWait(wait),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("disconnected", zap.Error(err), zap.Bool("will_reconnect", !nc.IsClosed()))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("async error", zap.String("subject", subject), zap.Error(err))
		}),
	}
	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}

	var (
		conn *nats.Conn
		err  error
	)
	for attempt := 1; attempt <= cfg.NATSMaxReconnects; attempt++ {
		conn, err = nats.Connect(cfg.NATSUrl, opts...)
		if err == nil {
			break
		}
		log.Warn("connect attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.NATSMaxReconnects),
			zap.Error(err),
		)
		if attempt < cfg.NATSMaxReconnects {
			time.Sleep(wait)
		}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "bus: connect to NATS after %d attempts", cfg.NATSMaxReconnects)
	}

	log.Info("connected", zap.String("url", conn.ConnectedUrl()), zap.String("server_id", conn.ConnectedServerId()))

	return &NATSBus{
		conn:          conn,
		subscriptions: make(map[*nats.Subscription]struct{}),
	}, nil
}

func subject(tenantID, topic string) string {
	return source + "." + tenantID + "." + topic
}

// Publish sends payload to the tenant's subject for topic.
func (b *NATSBus) Publish(ctx context.Context, tenantID string, topic string, payload []byte) error {
	if tenantID == "" {
		return ErrTenantRequired
	}

	data, err := json.Marshal(newMessage(ctx, tenantID, topic, payload))
	if err != nil {
		return eris.Wrap(err, "bus: encode message")
	}
	if err := b.conn.Publish(subject(tenantID, topic), data); err != nil {
		return eris.Wrapf(err, "bus: publish %s", topic)
	}
	return nil
}

// Subscribe registers handler on the tenant's subject for topic.
func (b *NATSBus) Subscribe(ctx context.Context, tenantID string, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	ns, err := b.conn.Subscribe(subject(tenantID, topic), func(m *nats.Msg) {
		var msg domain.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			zap.L().Error("bus: undecodable NATS message", zap.String("subject", m.Subject), zap.Error(err))
			return
		}
		if err := handler(ctx, &msg); err != nil {
			zap.L().Error("bus handler failed",
				zap.String("subject", m.Subject),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return nil, eris.Wrapf(err, "bus: subscribe %s", topic)
	}

	b.mu.Lock()
	b.subscriptions[ns] = struct{}{}
	b.mu.Unlock()

	return &natsSubscription{topic: topic, sub: ns, bus: b}, nil
}

// Ping flushes the connection to verify the server round trip.
func (b *NATSBus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return eris.New("bus: NATS not connected")
	}
	return b.conn.FlushWithContext(ctx)
}

// Close drains subscriptions and closes the connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ns := range b.subscriptions {
		_ = ns.Unsubscribe()
	}
	b.subscriptions = make(map[*nats.Subscription]struct{})
	b.conn.Close()
	return nil
}

// Stats returns NATS connection statistics.
func (b *NATSBus) Stats() nats.Statistics {
	return b.conn.Stats()
}

// Unsubscribe removes the subscription.
func (s *natsSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subscriptions, s.sub)
	s.bus.mu.Unlock()
	return s.sub.Unsubscribe()
}

// Topic returns the subscribed topic.
func (s *natsSubscription) Topic() string {
	return s.topic
}
