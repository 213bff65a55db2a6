package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ai-networking-be/internal/pkg/logger"
	"ai-networking-be/pkg/events"
)

type recordingRelay struct {
	mu   sync.Mutex
	envs []events.Envelope
	fail bool
}

func (r *recordingRelay) PublishEnvelope(ctx context.Context, env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	if r.fail {
		return errors.New("nats: no servers available")
	}
	return nil
}

func (r *recordingRelay) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.envs))
	for i, e := range r.envs {
		out[i] = e.Type
	}
	return out
}

func TestConsumerRelaysLifecycleEvents(t *testing.T) {
	for _, fail := range []bool{false, true} {
		t.Run(map[bool]string{false: "relay ok", true: "relay down"}[fail], func(t *testing.T) {
			defer goleak.VerifyNone(t)

			pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
			defer pubSub.Close()

			relay := &recordingRelay{fail: fail}
			consumer := NewConsumerService(pubSub, "", logger.NewNopLogger(), relay)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- consumer.Consume(ctx) }()

			at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			bus := events.NewBusPublisher(pubSub, "")
			require.NoError(t, pubSub.Publish(events.LifecycleTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
			require.NoError(t, bus.Publish(ctx, events.NewContactEvent(events.TypeDraftStarted, "u1", map[string]interface{}{"subject": "Sarah"}, at)))
			require.NoError(t, bus.Publish(ctx, events.NewContactEvent(events.TypeCommitted, "u1", map[string]interface{}{"ref": "c-1"}, at)))

			assert.Eventually(t, func() bool { return len(relay.types()) == 2 }, 2*time.Second, 10*time.Millisecond)
			assert.ElementsMatch(t, []string{events.TypeDraftStarted, events.TypeCommitted}, relay.types())

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("consumer did not stop")
			}
		})
	}
}
