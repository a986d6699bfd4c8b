package relay

import (
	"context"
	"time"
)

// reconcileLoop runs the periodic persistence reconciliation sweep:
// hand the Credential Store the current set of connected deviceIds so
// it can mark any device flagged online in persistence but absent from
// that set as offline. This covers crash recovery and missed close
// events.
func (r *Relay) reconcileLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.reconcileOnce(context.Background())
		}
	}
}

func (r *Relay) reconcileOnce(ctx context.Context) {
	snapshot := r.registry.idSet()

	stale, err := r.store.SyncOnlineDevicesWithConnections(ctx, snapshot)
	if err != nil {
		r.log.Warn().Err(err).Msg("device status reconciliation failed")
		return
	}

	if stale > 0 {
		r.log.Info().Int("stale_count", stale).Msg("reconciled stale online device flags")
	}
}
