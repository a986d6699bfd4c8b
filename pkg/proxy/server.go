package proxy

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brewlink/relay/pkg/credstore"
	"github.com/brewlink/relay/pkg/logger"
	"github.com/brewlink/relay/pkg/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultPingInterval    = 30 * time.Second
	defaultMaxMissedPongs  = 2
	defaultQueueCapacity   = queueCapacity
	defaultQueueTTL        = queueTTL
	defaultCacheStaleAfter = 10 * time.Second
	tokenExpiryWarning     = 5 * time.Minute
)

// Options configures a Proxy. Zero-value fields fall back to sensible
// defaults.
type Options struct {
	Store              credstore.Store
	Sender             Sender
	Logger             logger.Logger
	PingInterval       time.Duration
	MaxMissedPongs     int
	QueueCapacity      int
	QueueTTL           time.Duration
	CacheStaleAfter    time.Duration
	nowFunc            func() time.Time
}

// Proxy is the Client Proxy. Construct with New.
type Proxy struct {
	store           credstore.Store
	sender          Sender
	log             logger.Logger
	registry        *registry
	queues          *pendingQueues
	cache           *stateCache
	upgrader        websocket.Upgrader
	pingInterval    time.Duration
	maxMissedPongs  int
	cacheStaleAfter time.Duration
	now             func() time.Time
	startedAt       time.Time

	totalMessages   int64
	totalMessagesMu sync.Mutex

	unsubscribeDevice func()

	shutdownOnce sync.Once
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// New constructs a Proxy, subscribes it to device publications, and
// starts its background sweeps.
func New(opts Options) *Proxy {
	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger()
	}

	if opts.PingInterval == 0 {
		opts.PingInterval = defaultPingInterval
	}

	if opts.MaxMissedPongs == 0 {
		opts.MaxMissedPongs = defaultMaxMissedPongs
	}

	if opts.QueueCapacity == 0 {
		opts.QueueCapacity = defaultQueueCapacity
	}

	if opts.QueueTTL == 0 {
		opts.QueueTTL = defaultQueueTTL
	}

	if opts.CacheStaleAfter == 0 {
		opts.CacheStaleAfter = defaultCacheStaleAfter
	}

	if opts.nowFunc == nil {
		opts.nowFunc = time.Now
	}

	p := &Proxy{
		store:           opts.Store,
		sender:          opts.Sender,
		log:             opts.Logger,
		registry:        newRegistry(),
		queues:          newPendingQueues(opts.QueueCapacity, opts.QueueTTL),
		cache:           newStateCache(),
		upgrader:        websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(*http.Request) bool { return true }},
		pingInterval:    opts.PingInterval,
		maxMissedPongs:  opts.MaxMissedPongs,
		cacheStaleAfter: opts.CacheStaleAfter,
		now:             opts.nowFunc,
		startedAt:       opts.nowFunc(),
		stopCh:          make(chan struct{}),
	}

	p.unsubscribeDevice = p.sender.OnDeviceMessage(p.handleDeviceMessage)

	p.wg.Add(2)
	go p.pingSweepLoop()
	go p.queueSweepLoop()

	return p
}

// ServeHTTP implements the client WebSocket accept path: validate the
// token and target device, then upgrade and hydrate.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	token := strings.TrimSpace(req.URL.Query().Get("token"))
	deviceID := strings.TrimSpace(req.URL.Query().Get("device"))

	if token == "" || deviceID == "" {
		p.rejectUpgrade(w, req, CloseBadRequest, "Bad request")
		return
	}

	session, err := p.store.VerifyAccessToken(ctx, token)
	if err != nil {
		p.log.Warn().Err(err).Msg("access token verification failed")
		p.rejectUpgrade(w, req, CloseBadToken, "Invalid token")

		return
	}

	if session == nil {
		p.rejectUpgrade(w, req, CloseBadToken, "Invalid token")
		return
	}

	owns, err := p.store.UserOwnsDevice(ctx, session.UserID, deviceID)
	if err != nil {
		p.log.Warn().Err(err).Str("user_id", session.UserID).Str("device_id", deviceID).Msg("ownership check failed")
		p.rejectUpgrade(w, req, CloseNotOwner, "Not authorized")

		return
	}

	if !owns {
		p.rejectUpgrade(w, req, CloseNotOwner, "Not authorized")
		return
	}

	conn, err := p.upgrader.Upgrade(w, req, nil)
	if err != nil {
		p.log.Warn().Err(err).Str("device_id", deviceID).Msg("client websocket upgrade failed")
		return
	}

	p.handleClient(session, deviceID, conn)
}

func (p *Proxy) rejectUpgrade(w http.ResponseWriter, req *http.Request, code int, reason string) {
	conn, err := p.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	closeWithCode(conn, code, reason)
}

func closeWithCode(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

func (p *Proxy) handleClient(session *credstore.Session, deviceID string, wsConn *websocket.Conn) {
	now := p.now()
	sessionID := uuid.NewString()

	cc := newClientConnection(sessionID, session.UserID, deviceID, wsConn, session.AccessExpiresAt, now)
	cc.conn.SetPongHandler(func(string) error {
		p.recordPong(cc)
		return nil
	})

	p.registry.add(cc)
	p.scheduleTokenExpiry(cc)

	deviceOnline := p.sender.IsDeviceConnected(deviceID)
	lastSeen := p.sender.GetDeviceLastSeen(deviceID)

	_ = cc.writeJSON(models.Message{
		"type":           models.TypeConnected,
		"sessionId":      sessionID,
		"deviceId":       deviceID,
		"deviceOnline":   deviceOnline,
		"deviceLastSeen": lastSeen.UnixMilli(),
		"tokenExpiresAt": session.AccessExpiresAt.Format(time.RFC3339),
		"serverTime":     now.Format(time.RFC3339),
		"timestamp":      now.UnixMilli(),
	})

	p.hydrate(cc, deviceOnline, now)

	p.readLoop(cc)
}

// hydrate implements the post-connect cache replay and request_state
// rules: fresh cache replays without re-asking the device, a stale or
// empty cache (while the device is online) triggers a request_state,
// and an offline device gets nothing further.
func (p *Proxy) hydrate(cc *ClientConnection, deviceOnline bool, now time.Time) {
	if !deviceOnline {
		return
	}

	snapshot, ok := p.cache.get(cc.DeviceID)
	if !ok || snapshot.empty() {
		p.sender.SendToDevice(cc.DeviceID, models.Message{"type": models.TypeRequestState, "timestamp": now.UnixMilli()})
		return
	}

	for _, slot := range []struct {
		typ     string
		payload map[string]interface{}
	}{
		{models.TypeStatus, snapshot.Status},
		{models.TypeDeviceInfo, snapshot.DeviceInfo},
		{models.TypeEspStatus, snapshot.EspStatus},
		{models.TypePicoStatus, snapshot.PicoStatus},
	} {
		if slot.payload == nil {
			continue
		}

		msg := models.Message{"type": slot.typ, "deviceId": cc.DeviceID, "timestamp": now.UnixMilli()}
		for k, v := range slot.payload {
			msg[k] = v
		}

		_ = cc.writeJSON(msg)
	}

	if now.Sub(snapshot.LastUpdated) > p.cacheStaleAfter {
		p.sender.SendToDevice(cc.DeviceID, models.Message{"type": models.TypeRequestState, "timestamp": now.UnixMilli()})
	}
}

func (p *Proxy) readLoop(cc *ClientConnection) {
	defer p.closeClient(cc)

	for {
		messageType, data, err := cc.conn.ReadMessage()
		if err != nil {
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		cc.touch(p.now())

		msg, decodeErr := decodeClientFrame(data)
		if decodeErr != nil {
			p.log.Warn().Err(decodeErr).Str("session_id", cc.SessionID).Msg("dropping unparseable client frame")
			continue
		}

		cc.recordReceived()
		p.forward(cc, msg)
	}
}

func (p *Proxy) closeClient(cc *ClientConnection) {
	p.registry.remove(cc)
	p.cancelTokenExpiry(cc)
	_ = cc.conn.Close()
}

func (p *Proxy) incrementTotalMessages() {
	p.totalMessagesMu.Lock()
	p.totalMessages++
	p.totalMessagesMu.Unlock()
}

// GetConnectedClientCount returns the number of registered client
// sessions.
func (p *Proxy) GetConnectedClientCount() int {
	return p.registry.count()
}

// GetStats returns a snapshot of the proxy's current state.
func (p *Proxy) GetStats() Stats {
	p.totalMessagesMu.Lock()
	totalMessages := p.totalMessages
	p.totalMessagesMu.Unlock()

	return Stats{
		ConnectedClients:   p.registry.count(),
		TotalConnections:   p.registry.totalConnections(),
		TotalMessages:      int(totalMessages),
		UptimeMs:           p.now().Sub(p.startedAt).Milliseconds(),
		QueuedMessagesTotal: p.queues.totalLength(),
		ClientsByDevice:    p.registry.clientCountsByDevice(),
	}
}

// Shutdown cancels background timers and the device subscription. Open
// sockets, in-flight queues, and the state cache are discarded.
func (p *Proxy) Shutdown() {
	p.shutdownOnce.Do(func() {
		close(p.stopCh)
		p.unsubscribeDevice()
	})
	p.wg.Wait()
}
