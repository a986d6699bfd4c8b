package reqres

import (
	"context"
	"testing"
	"time"

	"github.com/brewlink/relay/pkg/models"
	"github.com/brewlink/relay/pkg/pubsub"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	bus        *pubsub.Bus
	connected  bool
	lastSent   models.Message
}

func (f *fakeSender) SendToDevice(_ string, message models.Message) bool {
	f.lastSent = message
	return f.connected
}

func (f *fakeSender) OnDeviceMessage(handler pubsub.Handler) func() {
	return f.bus.Subscribe(handler)
}

func TestDoResolvesOnMatchingResponse(t *testing.T) {
	sender := &fakeSender{bus: pubsub.NewBus(), connected: true}

	go func() {
		for {
			if sender.lastSent != nil {
				break
			}
			time.Sleep(time.Millisecond)
		}

		sender.bus.Publish(models.Message{
			"type":      "get_log_info_response",
			"deviceId":  "BRW-01ABCDEF",
			"requestId": sender.lastSent.RequestID(),
			"lines":     []interface{}{"a", "b"},
		})
	}()

	resp, err := Do(context.Background(), sender, "BRW-01ABCDEF", "get_log_info", nil, time.Now())
	require.NoError(t, err)
	require.Equal(t, "get_log_info_response", resp.Type())
}

func TestDoRejectsOnDeviceError(t *testing.T) {
	sender := &fakeSender{bus: pubsub.NewBus(), connected: true}

	go func() {
		for {
			if sender.lastSent != nil {
				break
			}
			time.Sleep(time.Millisecond)
		}

		sender.bus.Publish(models.Message{
			"type":      models.TypeError,
			"deviceId":  "BRW-01ABCDEF",
			"requestId": sender.lastSent.RequestID(),
			"message":   "unsupported command",
		})
	}()

	_, err := Do(context.Background(), sender, "BRW-01ABCDEF", "get_log_info", nil, time.Now())
	require.ErrorContains(t, err, "unsupported command")
}

func TestDoReturnsDeviceNotConnected(t *testing.T) {
	sender := &fakeSender{bus: pubsub.NewBus(), connected: false}

	_, err := Do(context.Background(), sender, "BRW-01ABCDEF", "get_log_info", nil, time.Now())
	require.ErrorIs(t, err, ErrDeviceNotConnected)
	require.Equal(t, 0, sender.bus.SubscriberCount())
}

func TestDoRejectsOnCallerContextCancellation(t *testing.T) {
	sender := &fakeSender{bus: pubsub.NewBus(), connected: true}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, sender, "BRW-01ABCDEF", "get_log_info", nil, time.Now())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, sender.bus.SubscriberCount())
}

func TestDoUnsubscribesAfterMatchingResponse(t *testing.T) {
	sender := &fakeSender{bus: pubsub.NewBus(), connected: true}

	go func() {
		for {
			if sender.lastSent != nil {
				break
			}
			time.Sleep(time.Millisecond)
		}

		sender.bus.Publish(models.Message{
			"type":      "get_log_info_response",
			"deviceId":  "BRW-01ABCDEF",
			"requestId": sender.lastSent.RequestID(),
		})
	}()

	_, err := Do(context.Background(), sender, "BRW-01ABCDEF", "get_log_info", nil, time.Now())
	require.NoError(t, err)
	require.Equal(t, 0, sender.bus.SubscriberCount())
}
