//go:generate mockgen -destination=mock_sender.go -package=proxy github.com/brewlink/relay/pkg/proxy Sender

package proxy

import (
	"time"

	"github.com/brewlink/relay/pkg/models"
	"github.com/brewlink/relay/pkg/pubsub"
)

// Sender is the slice of the Device Relay's exposed contract the
// Client Proxy depends on. relay.Relay satisfies it structurally, so
// this package never imports pkg/relay directly.
type Sender interface {
	SendToDevice(deviceID string, message models.Message) bool
	IsDeviceConnected(deviceID string) bool
	GetDeviceLastSeen(deviceID string) time.Time
	OnDeviceMessage(handler pubsub.Handler) (unsubscribe func())
}
