// Package models holds the wire-level types shared by the Device Relay
// and Client Proxy: the tagged-map message envelope and the small set
// of message types the relay plane itself interprets.
package models

import "time"

// Known message type tags exchanged over the relay plane.
const (
	TypeConnected              = "connected"
	TypeRequestState           = "request_state"
	TypeStatus                 = "status"
	TypeStatusDelta            = "status_delta"
	TypeDeviceInfo             = "device_info"
	TypeEspStatus              = "esp_status"
	TypePicoStatus             = "pico_status"
	TypeDeviceOnline           = "device_online"
	TypeDeviceOffline          = "device_offline"
	TypeDeviceStatus           = "device_status"
	TypeTokenExpiring          = "token_expiring"
	TypeRefreshAuth            = "refresh_auth"
	TypeAuthRefreshed          = "auth_refreshed"
	TypePing                   = "ping"
	TypePong                   = "pong"
	TypeGetMetrics             = "get_metrics"
	TypeMetrics                = "metrics"
	TypeQueuedMessageSent      = "queued_message_sent"
	TypeError                  = "error"
)

// CachedStateTypes are the device message types the proxy's state
// cache stores verbatim (full replacement of that slot).
var CachedStateTypes = map[string]bool{
	TypeStatus:     true,
	TypeDeviceInfo: true,
	TypeEspStatus:  true,
	TypePicoStatus: true,
}

// Message is a tagged map: every frame exchanged on either socket is
// one of these. Keys the relay plane doesn't interpret pass through
// untouched, so a relay that doesn't understand a payload still
// forwards it unchanged.
type Message map[string]interface{}

// Type returns the message's "type" field, or "" if absent or not a string.
func (m Message) Type() string {
	v, _ := m["type"].(string)
	return v
}

// DeviceID returns the message's "deviceId" field, or "" if absent.
func (m Message) DeviceID() string {
	v, _ := m["deviceId"].(string)
	return v
}

// RequestID returns the message's "requestId" field, or "" if absent.
func (m Message) RequestID() string {
	v, _ := m["requestId"].(string)
	return v
}

// SetTimestamp stamps a millisecond-epoch "timestamp" field if one isn't
// already present.
func (m Message) SetTimestamp(now time.Time) {
	if _, ok := m["timestamp"]; !ok {
		m["timestamp"] = now.UnixMilli()
	}
}

// Clone returns a shallow copy of m suitable for mutating without
// affecting a caller's copy (e.g. stamping a timestamp before publish).
func (m Message) Clone() Message {
	out := make(Message, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
