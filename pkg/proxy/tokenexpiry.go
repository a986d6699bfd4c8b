package proxy

import (
	"time"

	"github.com/brewlink/relay/pkg/models"
)

// scheduleTokenExpiry arms the one-shot expiry-warning timer for a
// newly connected client.
func (p *Proxy) scheduleTokenExpiry(cc *ClientConnection) {
	p.armTokenTimer(cc, cc.getAccessTokenExpiresAt())
}

// rescheduleTokenExpiry cancels any pending expiry-warning timer and
// arms a new one against the connection's current token expiry. Called
// after a successful refresh_auth.
func (p *Proxy) rescheduleTokenExpiry(cc *ClientConnection) {
	p.cancelTokenExpiry(cc)
	p.armTokenTimer(cc, cc.getAccessTokenExpiresAt())
}

func (p *Proxy) armTokenTimer(cc *ClientConnection, expiresAt time.Time) {
	delay := expiresAt.Add(-tokenExpiryWarning).Sub(p.now())
	if delay < 0 {
		delay = 0
	}

	cc.tokenTimerMu.Lock()
	cc.tokenTimer = time.AfterFunc(delay, func() { p.fireTokenExpiry(cc, expiresAt) })
	cc.tokenTimerMu.Unlock()
}

func (p *Proxy) fireTokenExpiry(cc *ClientConnection, expiresAt time.Time) {
	remaining := expiresAt.Sub(p.now())

	_ = cc.writeJSON(models.Message{
		"type":            models.TypeTokenExpiring,
		"expiresAt":       expiresAt.Format(time.RFC3339),
		"expiresIn":       int(remaining.Seconds()),
		"refreshRequired": true,
	})
}

// cancelTokenExpiry stops a connection's pending expiry-warning timer,
// if any. Called on refresh (before rescheduling) and on disconnect.
func (p *Proxy) cancelTokenExpiry(cc *ClientConnection) {
	cc.tokenTimerMu.Lock()
	defer cc.tokenTimerMu.Unlock()

	if cc.tokenTimer != nil {
		cc.tokenTimer.Stop()
		cc.tokenTimer = nil
	}
}
