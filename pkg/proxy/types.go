// Package proxy implements the Client Proxy: it owns authenticated
// client sessions, binds each to one target device, fans device
// publications out to bound clients, forwards client->device traffic,
// and maintains the offline queue, state cache, and token lifecycle.
package proxy

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes sent to rejected or terminated client connections.
const (
	CloseBadRequest = 4001
	CloseBadToken   = 4002
	CloseNotOwner   = 4003
)

// ConnectionMetrics is the per-client liveness/traffic summary exposed
// via the get_metrics control message.
type ConnectionMetrics struct {
	MessagesSent     int     `json:"messagesSent"`
	MessagesReceived int     `json:"messagesReceived"`
	LastPingRTTMs    *int64  `json:"lastPingRTT"`
	AvgPingRTTMs     float64 `json:"avgPingRTT"`
	PingCount        int     `json:"pingCount"`
	ReconnectCount   int     `json:"reconnectCount"`
}

// ClientConnection is one authenticated client socket bound to a single
// target device. Mutated only by the Client Proxy.
type ClientConnection struct {
	SessionID           string
	UserID               string
	DeviceID             string
	ConnectedAt          time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu                  sync.Mutex
	lastActivity        time.Time
	missedPongs         int
	accessTokenExpiresAt time.Time
	pingStartTime       time.Time
	metrics             ConnectionMetrics

	tokenTimerMu sync.Mutex
	tokenTimer   *time.Timer
}

func newClientConnection(sessionID, userID, deviceID string, conn *websocket.Conn, tokenExpiresAt, now time.Time) *ClientConnection {
	return &ClientConnection{
		SessionID:            sessionID,
		UserID:               userID,
		DeviceID:              deviceID,
		ConnectedAt:           now,
		conn:                  conn,
		lastActivity:          now,
		accessTokenExpiresAt:  tokenExpiresAt,
	}
}

func (c *ClientConnection) touch(now time.Time) {
	c.mu.Lock()
	c.lastActivity = now
	c.missedPongs = 0
	c.mu.Unlock()
}

func (c *ClientConnection) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(v)
}

func (c *ClientConnection) writeControl(messageType int, data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteControl(messageType, data, deadline)
}

func (c *ClientConnection) recordSent() {
	c.mu.Lock()
	c.metrics.MessagesSent++
	c.mu.Unlock()
}

func (c *ClientConnection) recordReceived() {
	c.mu.Lock()
	c.metrics.MessagesReceived++
	c.mu.Unlock()
}

// Metrics returns a copy of the connection's current metrics.
func (c *ClientConnection) Metrics() ConnectionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.metrics
}

func (c *ClientConnection) setAccessTokenExpiresAt(t time.Time) {
	c.mu.Lock()
	c.accessTokenExpiresAt = t
	c.mu.Unlock()
}

func (c *ClientConnection) getAccessTokenExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.accessTokenExpiresAt
}

// PendingMessage is a client->device payload buffered while the device
// was offline, bounded by per-device queue capacity and a TTL.
type PendingMessage struct {
	Message               map[string]interface{}
	EnqueuedAt             time.Time
	Retries                int
	OriginatingSessionID  string
}

// DeviceStateCache is the most recent full-status snapshot for one
// device, used to hydrate newly connecting clients instantly.
type DeviceStateCache struct {
	Status     map[string]interface{}
	DeviceInfo map[string]interface{}
	EspStatus  map[string]interface{}
	PicoStatus map[string]interface{}
	LastUpdated time.Time
}

func (c *DeviceStateCache) empty() bool {
	return c.Status == nil && c.DeviceInfo == nil && c.EspStatus == nil && c.PicoStatus == nil
}

// Stats summarizes the proxy's current state for admin/metrics use.
type Stats struct {
	ConnectedClients    int            `json:"connectedClients"`
	TotalConnections     int            `json:"totalConnections"`
	TotalMessages        int            `json:"totalMessages"`
	UptimeMs             int64          `json:"uptimeMs"`
	QueuedMessagesTotal  int            `json:"queuedMessagesTotal"`
	ClientsByDevice       map[string]int `json:"clientsByDevice"`
}
