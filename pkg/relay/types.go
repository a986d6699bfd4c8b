// Package relay implements the Device Relay: it accepts, authenticates,
// and multiplexes espresso-machine WebSocket connections, decodes their
// frames, and publishes device-origin events for the Client Proxy (and
// anyone else) to subscribe to.
package relay

import (
	"regexp"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DeviceIDPattern is the required shape of a device identifier,
// matched case-insensitively.
var DeviceIDPattern = regexp.MustCompile(`^(?i)BRW-[0-9A-F]{8}$`)

// Close codes sent to rejected or terminated device connections.
const (
	CloseBadRequest   = 4001
	CloseReplaced      = 4002
	CloseAuthFailed    = 4003
	CloseAdminDisconnect = 4000
)

// DeviceConnection is one authenticated device's live socket plus the
// liveness bookkeeping the keep-alive sweep maintains. At most one
// exists per deviceId at any time (enforced by registry).
type DeviceConnection struct {
	DeviceID    string
	conn        *websocket.Conn
	connectedAt time.Time

	mu          sync.Mutex
	writeMu     sync.Mutex
	lastSeen    time.Time
	missedPings int
}

func newDeviceConnection(deviceID string, conn *websocket.Conn, now time.Time) *DeviceConnection {
	return &DeviceConnection{
		DeviceID:    deviceID,
		conn:        conn,
		connectedAt: now,
		lastSeen:    now,
	}
}

// touch resets missedPings to zero and advances lastSeen; called on any
// received frame, including pong frames.
func (d *DeviceConnection) touch(now time.Time) {
	d.mu.Lock()
	d.lastSeen = now
	d.missedPings = 0
	d.mu.Unlock()
}

// notePingSweep increments missedPings and returns the post-increment
// value, called once per keep-alive sweep before the ping is sent.
func (d *DeviceConnection) notePingSweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.missedPings++

	return d.missedPings
}

// LastSeen returns the last instant any frame was received from the device.
func (d *DeviceConnection) LastSeen() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.lastSeen
}

// writeJSON serializes v and writes it as a text frame, serialized
// against concurrent writers (gorilla/websocket permits only one
// writer goroutine at a time per connection).
func (d *DeviceConnection) writeJSON(v interface{}) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	return d.conn.WriteJSON(v)
}

func (d *DeviceConnection) writeControl(messageType int, data []byte, deadline time.Time) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	return d.conn.WriteControl(messageType, data, deadline)
}

// Stats summarizes the relay's current state for admin/metrics use.
type Stats struct {
	ConnectedDevices int       `json:"connectedDevices"`
	UptimeMs         int64     `json:"uptimeMs"`
	StartedAt        time.Time `json:"startedAt"`
}
