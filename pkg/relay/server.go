package relay

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brewlink/relay/pkg/credstore"
	"github.com/brewlink/relay/pkg/logger"
	"github.com/brewlink/relay/pkg/models"
	"github.com/brewlink/relay/pkg/pubsub"
	"github.com/gorilla/websocket"
)

// Options configures a Relay. Zero-value fields fall back to sensible
// defaults.
type Options struct {
	Store             credstore.Store
	Logger            logger.Logger
	PingInterval      time.Duration
	MaxMissedPings    int
	ReconcileInterval time.Duration
	nowFunc           func() time.Time
}

// Relay is the Device Relay. Construct with New.
type Relay struct {
	store             credstore.Store
	log               logger.Logger
	bus               *pubsub.Bus
	registry          *registry
	upgrader          websocket.Upgrader
	pingInterval      time.Duration
	maxMissedPings    int
	reconcileInterval time.Duration
	now               func() time.Time
	startedAt         time.Time

	shutdownOnce sync.Once
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// New constructs a Relay and starts its background sweeps.
func New(opts Options) *Relay {
	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger()
	}

	if opts.PingInterval == 0 {
		opts.PingInterval = 10 * time.Second
	}

	if opts.MaxMissedPings == 0 {
		opts.MaxMissedPings = 2
	}

	if opts.ReconcileInterval == 0 {
		opts.ReconcileInterval = 60 * time.Second
	}

	if opts.nowFunc == nil {
		opts.nowFunc = time.Now
	}

	r := &Relay{
		store:             opts.Store,
		log:               opts.Logger,
		bus:               pubsub.NewBus(),
		registry:          newRegistry(),
		upgrader:          websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(*http.Request) bool { return true }},
		pingInterval:      opts.PingInterval,
		maxMissedPings:    opts.MaxMissedPings,
		reconcileInterval: opts.ReconcileInterval,
		now:               opts.nowFunc,
		startedAt:         opts.nowFunc(),
		stopCh:            make(chan struct{}),
	}

	r.wg.Add(2)
	go r.pingSweepLoop()
	go r.reconcileLoop()

	return r
}

// OnDeviceMessage subscribes handler to every message published by a
// device, in publication order. The returned function unsubscribes it.
func (r *Relay) OnDeviceMessage(handler pubsub.Handler) (unsubscribe func()) {
	return r.bus.Subscribe(handler)
}

// ServeHTTP implements the device WebSocket accept path: validate the
// device id and key, verify the key, then upgrade.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	deviceID := strings.TrimSpace(req.URL.Query().Get("id"))
	key := req.URL.Query().Get("key")

	if deviceID == "" || key == "" || !DeviceIDPattern.MatchString(deviceID) {
		r.rejectUpgrade(w, req, CloseBadRequest, "Bad request")
		return
	}

	if len(key) < 32 || len(key) > 64 {
		r.rejectUpgrade(w, req, CloseAuthFailed, "Invalid key")
		return
	}

	ok, err := r.store.VerifyDeviceKey(ctx, deviceID, key)
	if err != nil {
		r.log.Error().Err(err).Str("device_id", deviceID).Msg("device key verification failed")
		r.rejectUpgrade(w, req, CloseAuthFailed, "Auth failed")

		return
	}

	if !ok {
		r.rejectUpgrade(w, req, CloseAuthFailed, "Auth failed")
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.Warn().Err(err).Str("device_id", deviceID).Msg("device websocket upgrade failed")
		return
	}

	r.handleDevice(ctx, deviceID, conn)
}

func (r *Relay) rejectUpgrade(w http.ResponseWriter, req *http.Request, code int, reason string) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
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

func (r *Relay) handleDevice(ctx context.Context, deviceID string, wsConn *websocket.Conn) {
	now := r.now()
	dc := newDeviceConnection(deviceID, wsConn, now)

	dc.conn.SetPongHandler(func(string) error {
		dc.touch(r.now())
		return nil
	})

	if previous := r.registry.replace(deviceID, dc); previous != nil {
		r.log.Info().Str("device_id", deviceID).Msg("replacing existing device connection")
		closeWithCode(previous.conn, CloseReplaced, "Replaced by new connection")
	}

	if err := r.store.UpdateDeviceStatus(ctx, deviceID, true); err != nil {
		r.log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to mark device online")
	}

	_ = dc.writeJSON(models.Message{"type": models.TypeConnected, "timestamp": now.UnixMilli()})
	_ = dc.writeJSON(models.Message{"type": models.TypeRequestState, "timestamp": now.UnixMilli()})

	r.bus.Publish(models.Message{"type": models.TypeDeviceOnline, "deviceId": deviceID, "timestamp": now.UnixMilli()})

	r.readLoop(ctx, dc)
}

func (r *Relay) readLoop(ctx context.Context, dc *DeviceConnection) {
	defer r.closeDevice(ctx, dc)

	for {
		messageType, data, err := dc.conn.ReadMessage()
		if err != nil {
			return
		}

		dc.touch(r.now())

		var msgs []models.Message

		switch messageType {
		case websocket.BinaryMessage:
			decoded, decodeErr := decodeBinaryFrame(data)
			if decodeErr != nil {
				r.log.Warn().Err(decodeErr).Str("device_id", dc.DeviceID).Msg("dropping unparseable binary frame")
				continue
			}

			msgs = decoded
		case websocket.TextMessage:
			decoded, decodeErr := decodeTextFrame(data)
			if decodeErr != nil {
				r.log.Warn().Err(decodeErr).Str("device_id", dc.DeviceID).Msg("dropping unparseable text frame")
				continue
			}

			msgs = []models.Message{decoded}
		default:
			continue
		}

		for _, msg := range msgs {
			r.processDeviceMessage(dc.DeviceID, msg)
		}
	}
}

func (r *Relay) processDeviceMessage(deviceID string, msg models.Message) {
	if msg == nil {
		return
	}

	if _, ok := msg["deviceId"]; !ok {
		msg["deviceId"] = deviceID
	}

	msg.SetTimestamp(r.now())

	r.bus.Publish(msg)
}

func (r *Relay) closeDevice(ctx context.Context, dc *DeviceConnection) {
	if !r.registry.removeIfCurrent(dc.DeviceID, dc) {
		// Already superseded by a replacement connection; that
		// connection owns the registry slot and the online flag now.
		return
	}

	_ = dc.conn.Close()

	if err := r.store.UpdateDeviceStatus(ctx, dc.DeviceID, false); err != nil {
		r.log.Warn().Err(err).Str("device_id", dc.DeviceID).Msg("failed to mark device offline")
	}

	r.bus.Publish(models.Message{"type": models.TypeDeviceOffline, "deviceId": dc.DeviceID, "timestamp": r.now().UnixMilli()})
}

// SendToDevice encodes message as JSON text and writes it to the
// device's socket, non-blocking from the caller's perspective. It
// returns false if the device isn't registered or the write failed —
// callers are responsible for queuing on false.
func (r *Relay) SendToDevice(deviceID string, message models.Message) bool {
	dc := r.registry.get(deviceID)
	if dc == nil {
		return false
	}

	if err := dc.writeJSON(message); err != nil {
		r.log.Warn().Err(err).Str("device_id", deviceID).Msg("send to device failed")
		return false
	}

	return true
}

// IsDeviceConnected reports whether deviceID currently has a registered connection.
func (r *Relay) IsDeviceConnected(deviceID string) bool {
	return r.registry.get(deviceID) != nil
}

// GetDeviceLastSeen returns the device's last-seen instant, or the zero
// time if it isn't connected.
func (r *Relay) GetDeviceLastSeen(deviceID string) time.Time {
	dc := r.registry.get(deviceID)
	if dc == nil {
		return time.Time{}
	}

	return dc.LastSeen()
}

// GetConnectedDeviceCount returns the number of registered devices.
func (r *Relay) GetConnectedDeviceCount() int {
	return r.registry.count()
}

// GetConnectedDevices returns a snapshot of every connected deviceID.
func (r *Relay) GetConnectedDevices() []string {
	return r.registry.ids()
}

// DisconnectDevice forcibly closes deviceID's connection with close
// code 4000 ("Disconnected by admin"), reporting whether one existed.
func (r *Relay) DisconnectDevice(deviceID string) bool {
	dc := r.registry.get(deviceID)
	if dc == nil {
		return false
	}

	closeWithCode(dc.conn, CloseAdminDisconnect, "Disconnected by admin")

	return true
}

// GetStats returns a snapshot of the relay's current state.
func (r *Relay) GetStats() Stats {
	return Stats{
		ConnectedDevices: r.registry.count(),
		UptimeMs:         r.now().Sub(r.startedAt).Milliseconds(),
		StartedAt:        r.startedAt,
	}
}

// Shutdown cancels background timers. Open sockets are left to close
// on process teardown.
func (r *Relay) Shutdown() {
	r.shutdownOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}
