package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/fhi/internal/domain"
)

func receive(t *testing.T, ch <-chan *domain.Message) *domain.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func collector(ch chan<- *domain.Message) domain.MessageHandler {
	return func(_ context.Context, msg *domain.Message) error {
		ch <- msg
		return nil
	}
}

func TestChannelBus(t *testing.T) {
	ctx := context.Background()
	const tenant = "tenant-001"

	t.Run("publish and subscribe", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		got := make(chan *domain.Message, 1)
		sub, err := b.Subscribe(ctx, tenant, domain.TopicScoreComputed, collector(got))
		require.NoError(t, err)
		assert.Equal(t, domain.TopicScoreComputed, sub.Topic())

		require.NoError(t, b.Publish(ctx, tenant, domain.TopicScoreComputed, []byte("hello")))

		msg := receive(t, got)
		assert.Equal(t, "hello", string(msg.Payload))
		assert.Equal(t, tenant, msg.TenantID)
		assert.Equal(t, domain.TopicScoreComputed, msg.Topic)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "fhi", msg.Metadata[domain.MetaSource])
		assert.NotContains(t, msg.Metadata, domain.MetaTraceID)
	})

	t.Run("trace id propagates", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		traceID := trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: traceID,
			SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		})
		tctx := trace.ContextWithSpanContext(ctx, sc)

		got := make(chan *domain.Message, 1)
		_, err := b.Subscribe(ctx, tenant, "t", collector(got))
		require.NoError(t, err)
		require.NoError(t, b.Publish(tctx, tenant, "t", nil))

		msg := receive(t, got)
		assert.Equal(t, traceID.String(), msg.Metadata[domain.MetaTraceID])
	})

	t.Run("tenant isolation", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		one := make(chan *domain.Message, 1)
		two := make(chan *domain.Message, 1)
		_, _ = b.Subscribe(ctx, "t1", "topic", collector(one))
		_, _ = b.Subscribe(ctx, "t2", "topic", collector(two))

		require.NoError(t, b.Publish(ctx, "t1", "topic", []byte("x")))
		assert.Equal(t, "t1", receive(t, one).TenantID)

		select {
		case <-two:
			t.Fatal("t2 received a t1 message")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("requires tenant", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		assert.ErrorIs(t, b.Publish(ctx, "", "topic", nil), ErrTenantRequired)
		_, err := b.Subscribe(ctx, "", "topic", collector(make(chan *domain.Message)))
		assert.ErrorIs(t, err, ErrTenantRequired)
	})

	t.Run("unsubscribe detaches", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		got := make(chan *domain.Message, 1)
		sub, _ := b.Subscribe(ctx, tenant, "topic", collector(got))
		require.NoError(t, sub.Unsubscribe())

		b.mu.RLock()
		assert.Empty(t, b.subscriptions)
		b.mu.RUnlock()

		require.NoError(t, b.Publish(ctx, tenant, "topic", nil))
		select {
		case <-got:
			t.Fatal("received after unsubscribe")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("multiple subscribers", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		got := make(chan *domain.Message, 3)
		for i := 0; i < 3; i++ {
			_, err := b.Subscribe(ctx, tenant, "fan", collector(got))
			require.NoError(t, err)
		}
		require.NoError(t, b.Publish(ctx, tenant, "fan", nil))
		for i := 0; i < 3; i++ {
			receive(t, got)
		}
	})

	t.Run("full buffer drops", func(t *testing.T) {
		b := NewChannelBus(1)
		defer b.Close()

		release := make(chan struct{})
		_, _ = b.Subscribe(ctx, tenant, "slow", func(context.Context, *domain.Message) error {
			<-release
			return nil
		})

		for i := 0; i < 5; i++ {
			require.NoError(t, b.Publish(ctx, tenant, "slow", nil))
		}
		close(release)
		assert.Positive(t, b.Dropped())
	})

	t.Run("handler errors do not stop delivery", func(t *testing.T) {
		b := NewChannelBus(10)
		defer b.Close()

		var calls atomic.Int32
		_, _ = b.Subscribe(ctx, tenant, "err", func(context.Context, *domain.Message) error {
			calls.Add(1)
			return errors.New("boom")
		})
		_ = b.Publish(ctx, tenant, "err", nil)
		_ = b.Publish(ctx, tenant, "err", nil)

		assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	})
}

func TestChannelBusClose(t *testing.T) {
	ctx := context.Background()
	b := NewChannelBus(10)

	_, err := b.Subscribe(ctx, "t", "topic", collector(make(chan *domain.Message, 1)))
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Publish(ctx, "t", "topic", nil), ErrClosed)
	_, err = b.Subscribe(ctx, "t", "topic", collector(make(chan *domain.Message)))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, b.Ping(ctx), ErrClosed)
}

func TestChannelBusHighLoad(t *testing.T) {
	ctx := context.Background()
	b := NewChannelBus(1000)
	defer b.Close()

	const messageCount = 500
	var received atomic.Int32
	_, err := b.Subscribe(ctx, "load", "topic", func(context.Context, *domain.Message) error {
		received.Add(1)
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < messageCount; i++ {
		require.NoError(t, b.Publish(ctx, "load", "topic", []byte("msg")))
	}

	assert.Eventually(t, func() bool { return received.Load() == messageCount }, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, b.Dropped())
}

func TestNew(t *testing.T) {
	b, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 5})
	require.NoError(t, err)
	defer b.Close()
	_, ok := b.(*ChannelBus)
	assert.True(t, ok)

	_, err = New(domain.EventBusConfig{Type: "kafka"})
	assert.Error(t, err)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "fhi.tenant-a.fhi.score.computed", subject("tenant-a", domain.TopicScoreComputed))
}
