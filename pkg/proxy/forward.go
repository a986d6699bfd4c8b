package proxy

import (
	"context"
	"time"

	"github.com/brewlink/relay/pkg/models"
)

// forward dispatches one client frame: the three control types are
// answered directly, everything else is a DeviceMessage bound for the
// target device.
func (p *Proxy) forward(cc *ClientConnection, msg models.Message) {
	switch msg.Type() {
	case models.TypeRefreshAuth:
		p.handleRefreshAuth(cc, msg)
	case models.TypePing:
		p.handlePing(cc, msg)
	case models.TypeGetMetrics:
		p.handleGetMetrics(cc)
	default:
		p.forwardToDevice(cc, msg)
	}
}

func (p *Proxy) handleRefreshAuth(cc *ClientConnection, msg models.Message) {
	token, _ := msg["token"].(string)

	session, err := p.store.VerifyAccessToken(context.Background(), token)
	if err != nil || session == nil {
		_ = cc.writeJSON(models.Message{"type": models.TypeAuthRefreshed, "success": false, "reason": "invalid token"})
		return
	}

	if session.UserID != cc.UserID {
		_ = cc.writeJSON(models.Message{"type": models.TypeAuthRefreshed, "success": false, "reason": "user mismatch"})
		return
	}

	cc.setAccessTokenExpiresAt(session.AccessExpiresAt)
	p.rescheduleTokenExpiry(cc)

	_ = cc.writeJSON(models.Message{
		"type":           models.TypeAuthRefreshed,
		"success":        true,
		"tokenExpiresAt": session.AccessExpiresAt.Format(time.RFC3339),
	})
}

func (p *Proxy) handlePing(cc *ClientConnection, msg models.Message) {
	now := p.now()

	reply := models.Message{"type": models.TypePong, "timestamp": now.UnixMilli()}
	if ts, ok := msg["timestamp"]; ok {
		reply["clientTimestamp"] = ts
	}

	_ = cc.writeJSON(reply)
}

func (p *Proxy) handleGetMetrics(cc *ClientConnection) {
	_ = cc.writeJSON(models.Message{
		"type":            models.TypeMetrics,
		"connection":      cc.Metrics(),
		"deviceOnline":    p.sender.IsDeviceConnected(cc.DeviceID),
		"queuedMessages":  p.queues.length(cc.DeviceID),
	})
}

func (p *Proxy) forwardToDevice(cc *ClientConnection, msg models.Message) {
	now := p.now()
	msg.SetTimestamp(now)

	if p.sender.SendToDevice(cc.DeviceID, msg) {
		cc.recordSent()
		p.incrementTotalMessages()

		return
	}

	length := p.queues.enqueue(cc.DeviceID, &PendingMessage{
		Message:              msg,
		EnqueuedAt:           now,
		OriginatingSessionID: cc.SessionID,
	})

	_ = cc.writeJSON(models.Message{
		"type":           models.TypeDeviceStatus,
		"online":         false,
		"lastSeen":       p.sender.GetDeviceLastSeen(cc.DeviceID).UnixMilli(),
		"messageQueued":  true,
		"queuedMessages": length,
		"queueTTL":       int(p.queues.ttl.Seconds()),
	})
}
