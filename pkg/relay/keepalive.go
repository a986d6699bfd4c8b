package relay

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// pingSweepLoop runs the periodic keep-alive sweep: every registered
// device is pinged and its missedPings counter incremented; exceeding
// maxMissedPings forcibly terminates the connection.
func (r *Relay) pingSweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweepPings()
		}
	}
}

func (r *Relay) sweepPings() {
	for _, id := range r.registry.ids() {
		dc := r.registry.get(id)
		if dc == nil {
			continue
		}

		missed := dc.notePingSweep()
		if missed > r.maxMissedPings {
			r.log.Info().Str("device_id", id).Int("missed_pings", missed).Msg("device missed too many pings, terminating")
			r.closeDevice(context.Background(), dc)

			continue
		}

		deadline := r.now().Add(r.pingInterval / 2)
		if err := dc.writeControl(websocket.PingMessage, nil, deadline); err != nil {
			r.log.Warn().Err(err).Str("device_id", id).Msg("failed to ping device")
		}
	}
}
