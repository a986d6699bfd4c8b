package events

import (
	"context"
	"time"

	"github.com/brewlink/relay/pkg/models"
	"github.com/brewlink/relay/pkg/pubsub"
)

// DeviceMessageSource is the slice of the Device Relay's contract this
// package depends on.
type DeviceMessageSource interface {
	OnDeviceMessage(handler pubsub.Handler) (unsubscribe func())
}

// lifecyclePublisher is the slice of Publisher's behavior Subscribe
// depends on, satisfied by *Publisher.
type lifecyclePublisher interface {
	PublishDeviceOnline(ctx context.Context, deviceID string, at time.Time)
	PublishDeviceOffline(ctx context.Context, deviceID string, at time.Time)
}

// lifecycleQueueCapacity bounds how many pending lifecycle events the
// publishing worker can fall behind by before new ones are dropped
// rather than blocking the bus's publishing goroutine.
const lifecycleQueueCapacity = 256

type lifecycleEvent struct {
	online   bool
	deviceID string
	at       time.Time
}

// Subscribe wires publisher to source's device_online/device_offline
// publications and returns an unsubscribe function. The bus handler
// itself never touches the network: it only enqueues onto a buffered
// channel drained by a dedicated worker goroutine, so a slow or
// unreachable NATS server stalls that worker, never the Device Relay's
// message-processing goroutine.
func Subscribe(source DeviceMessageSource, publisher lifecyclePublisher) (unsubscribe func()) {
	queue := make(chan lifecycleEvent, lifecycleQueueCapacity)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for ev := range queue {
			if ev.online {
				publisher.PublishDeviceOnline(context.Background(), ev.deviceID, ev.at)
			} else {
				publisher.PublishDeviceOffline(context.Background(), ev.deviceID, ev.at)
			}
		}
	}()

	busUnsubscribe := source.OnDeviceMessage(func(msg models.Message) {
		deviceID := msg.DeviceID()
		if deviceID == "" {
			return
		}

		var ev lifecycleEvent

		switch msg.Type() {
		case models.TypeDeviceOnline:
			ev = lifecycleEvent{online: true, deviceID: deviceID, at: time.Now()}
		case models.TypeDeviceOffline:
			ev = lifecycleEvent{online: false, deviceID: deviceID, at: time.Now()}
		default:
			return
		}

		select {
		case queue <- ev:
		default:
			// Worker is behind; drop rather than block the publisher.
		}
	})

	return func() {
		busUnsubscribe()
		close(queue)
		<-done
	}
}
