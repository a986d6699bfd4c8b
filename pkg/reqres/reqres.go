// Package reqres implements the HTTP-route-to-device request/response
// correlation helper: it sends a DeviceMessage and waits for a
// matching reply published by the Device Relay, unsubscribing on
// every exit path.
package reqres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/brewlink/relay/pkg/models"
	"github.com/brewlink/relay/pkg/pubsub"
)

const requestTimeout = 10 * time.Second

// ErrTimeout is returned when no matching response arrives within the
// request timeout.
var ErrTimeout = errors.New("request timeout")

// ErrDeviceNotConnected is returned when Sender.SendToDevice reports
// the target device isn't connected.
var ErrDeviceNotConnected = errors.New("device not connected")

// Sender is the slice of the Device Relay's contract this package
// depends on.
type Sender interface {
	SendToDevice(deviceID string, message models.Message) bool
	OnDeviceMessage(handler pubsub.Handler) (unsubscribe func())
}

// NewRequestID mints a correlation id in the "req_<msEpoch>_<random6>"
// shape.
func NewRequestID(now time.Time) string {
	var buf [3]byte
	_, _ = rand.Read(buf[:])

	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(buf[:]))
}

// Do sends msgType (plus any extra fields) to deviceID, waits up to the
// request timeout for a reply tagged with the matching requestId, and
// returns the reply payload. A reply of type "error" rejects with the
// carried message field.
func Do(ctx context.Context, sender Sender, deviceID, msgType string, extra map[string]interface{}, now time.Time) (models.Message, error) {
	requestID := NewRequestID(now)

	msg := models.Message{"type": msgType, "deviceId": deviceID, "requestId": requestID, "timestamp": now.UnixMilli()}
	for k, v := range extra {
		msg[k] = v
	}

	responses := make(chan models.Message, 1)

	unsubscribe := sender.OnDeviceMessage(func(m models.Message) {
		if m.DeviceID() != deviceID || m.RequestID() != requestID {
			return
		}

		if m.Type() != msgType+"_response" && m.Type() != models.TypeError {
			return
		}

		select {
		case responses <- m:
		default:
		}
	})
	defer unsubscribe()

	if !sender.SendToDevice(deviceID, msg) {
		return nil, ErrDeviceNotConnected
	}

	select {
	case resp := <-responses:
		if resp.Type() == models.TypeError {
			reason, _ := resp["message"].(string)
			return nil, fmt.Errorf("device error: %s", reason)
		}

		return resp, nil
	case <-time.After(requestTimeout):
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
