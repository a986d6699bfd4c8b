package proxy

import (
	"time"

	"github.com/gorilla/websocket"
)

// pingSweepLoop runs the periodic client keep-alive sweep: every
// registered client is pinged and its missedPongs counter incremented;
// exceeding maxMissedPongs forcibly terminates the connection.
func (p *Proxy) pingSweepLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.sweepPings()
		}
	}
}

func (p *Proxy) sweepPings() {
	now := p.now()

	for _, cc := range p.registry.allSessions() {
		cc.mu.Lock()
		cc.missedPongs++
		missed := cc.missedPongs
		cc.pingStartTime = now
		cc.mu.Unlock()

		if missed > p.maxMissedPongs {
			p.log.Info().Str("session_id", cc.SessionID).Int("missed_pongs", missed).Msg("client missed too many pongs, terminating")
			p.closeClient(cc)

			continue
		}

		deadline := now.Add(p.pingInterval / 2)
		if err := cc.writeControl(websocket.PingMessage, nil, deadline); err != nil {
			p.log.Warn().Err(err).Str("session_id", cc.SessionID).Msg("failed to ping client")
		}
	}
}

// recordPong handles a client pong: it resets missedPongs, records the
// round-trip time, and updates the running mean.
func (p *Proxy) recordPong(cc *ClientConnection) {
	now := p.now()

	cc.mu.Lock()
	defer cc.mu.Unlock()

	cc.lastActivity = now
	cc.missedPongs = 0

	if cc.pingStartTime.IsZero() {
		return
	}

	rtt := now.Sub(cc.pingStartTime).Milliseconds()
	cc.metrics.LastPingRTTMs = &rtt
	cc.metrics.PingCount++

	if cc.metrics.PingCount == 1 {
		cc.metrics.AvgPingRTTMs = float64(rtt)
	} else {
		n := float64(cc.metrics.PingCount)
		cc.metrics.AvgPingRTTMs += (float64(rtt) - cc.metrics.AvgPingRTTMs) / n
	}
}

// queueSweepLoop runs the periodic offline-queue TTL sweep.
func (p *Proxy) queueSweepLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.queues.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.queues.sweep(p.now())
		}
	}
}
