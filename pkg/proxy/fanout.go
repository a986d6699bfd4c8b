package proxy

import (
	"time"

	"github.com/brewlink/relay/pkg/models"
)

// handleDeviceMessage is the subscription handler registered against
// the Device Relay's publication. It runs synchronously on the
// publishing goroutine, so it only touches maps and issues
// non-blocking writes.
func (p *Proxy) handleDeviceMessage(msg models.Message) {
	deviceID := msg.DeviceID()
	if deviceID == "" {
		return
	}

	now := p.now()

	switch msg.Type() {
	case models.TypeStatus, models.TypeDeviceInfo, models.TypeEspStatus, models.TypePicoStatus:
		// Clone before caching: the cache retains this payload long past
		// this handler invocation, while msg itself is about to be
		// fanned out to every connected client below.
		p.cache.applyFullState(deviceID, msg.Type(), msg.Clone(), now)
	case models.TypeStatusDelta:
		p.cache.touchFreshness(deviceID, now)
	case models.TypeDeviceOnline:
		p.flushQueue(deviceID, now)
	case models.TypeDeviceOffline:
		p.cache.clear(deviceID)
	}

	clients := p.registry.clientsForDevice(deviceID)
	if len(clients) == 0 {
		p.log.Debug().Str("device_id", deviceID).Str("type", msg.Type()).Msg("no client connected, dropping device message")
		return
	}

	for _, cc := range clients {
		if err := cc.writeJSON(msg); err != nil {
			p.log.Warn().Err(err).Str("session_id", cc.SessionID).Msg("failed to relay device message to client")
		}
	}
}

// flushQueue walks deviceID's pending queue once: the queue is drained
// up front, expired entries are discarded, and each remaining entry is
// sent once. A failed send increments the entry's Retries counter and
// the entry is dropped with the rest of the drained queue; it is not
// re-enqueued or sent again. Each successful send notifies its
// originating client.
func (p *Proxy) flushQueue(deviceID string, now time.Time) {
	pending := p.queues.drain(deviceID)

	for _, msg := range pending {
		if now.Sub(msg.EnqueuedAt) > p.queues.ttl {
			continue
		}

		if !p.sender.SendToDevice(deviceID, msg.Message) {
			msg.Retries++
			continue
		}

		p.incrementTotalMessages()

		cc := p.registry.get(msg.OriginatingSessionID)
		if cc == nil {
			continue
		}

		cc.recordSent()

		_ = cc.writeJSON(models.Message{
			"type":              models.TypeQueuedMessageSent,
			"originalTimestamp": msg.Message["timestamp"],
			"messageType":       msg.Message["type"],
		})
	}
}
