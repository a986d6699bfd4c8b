package events

import (
	"context"
	"testing"
	"time"

	"github.com/brewlink/relay/pkg/models"
	"github.com/brewlink/relay/pkg/pubsub"
	"github.com/stretchr/testify/require"
)

type busSource struct {
	bus *pubsub.Bus
}

func (s busSource) OnDeviceMessage(handler pubsub.Handler) (unsubscribe func()) {
	return s.bus.Subscribe(handler)
}

type recordingPublisher struct {
	online  []string
	offline []string
}

func (r *recordingPublisher) PublishDeviceOnline(_ context.Context, deviceID string, _ time.Time) {
	r.online = append(r.online, deviceID)
}

func (r *recordingPublisher) PublishDeviceOffline(_ context.Context, deviceID string, _ time.Time) {
	r.offline = append(r.offline, deviceID)
}

func TestSubscribeRoutesOnlineAndOfflineOnly(t *testing.T) {
	bus := pubsub.NewBus()
	pub := &recordingPublisher{}

	unsubscribe := Subscribe(busSource{bus: bus}, pub)

	bus.Publish(models.Message{"type": models.TypeDeviceOnline, "deviceId": "BRW-01ABCDEF"})
	bus.Publish(models.Message{"type": models.TypeStatus, "deviceId": "BRW-01ABCDEF"})
	bus.Publish(models.Message{"type": models.TypeDeviceOffline, "deviceId": "BRW-01ABCDEF"})

	// unsubscribe drains the worker's queue before returning, so it
	// doubles as the synchronization point for the async publish path.
	unsubscribe()

	require.Equal(t, []string{"BRW-01ABCDEF"}, pub.online)
	require.Equal(t, []string{"BRW-01ABCDEF"}, pub.offline)
}

func TestSubscribeIgnoresMessagesWithoutDeviceID(t *testing.T) {
	bus := pubsub.NewBus()
	pub := &recordingPublisher{}

	unsubscribe := Subscribe(busSource{bus: bus}, pub)

	bus.Publish(models.Message{"type": models.TypeDeviceOnline})

	unsubscribe()

	require.Empty(t, pub.online)
}

type blockingPublisher struct {
	release chan struct{}
}

func (b *blockingPublisher) PublishDeviceOnline(_ context.Context, _ string, _ time.Time) {
	<-b.release
}

func (b *blockingPublisher) PublishDeviceOffline(context.Context, string, time.Time) {}

func TestSubscribeDoesNotBlockThePublishingGoroutine(t *testing.T) {
	bus := pubsub.NewBus()
	pub := &blockingPublisher{release: make(chan struct{})}

	unsubscribe := Subscribe(busSource{bus: bus}, pub)

	done := make(chan struct{})
	go func() {
		bus.Publish(models.Message{"type": models.TypeDeviceOnline, "deviceId": "BRW-01ABCDEF"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bus.Publish blocked on a slow lifecycle publisher")
	}

	close(pub.release)
	unsubscribe()
}
