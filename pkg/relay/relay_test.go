package relay

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brewlink/relay/pkg/credstore"
	"github.com/brewlink/relay/pkg/logger"
	"github.com/brewlink/relay/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const testDeviceKey = "01234567890123456789012345678901"

func newTestRelay(t *testing.T, store *credstore.MemoryStore) (*Relay, *httptest.Server) {
	t.Helper()

	r := New(Options{
		Store:             store,
		Logger:            logger.NewTestLogger(),
		PingInterval:      time.Hour,
		ReconcileInterval: time.Hour,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		r.Shutdown()
	})

	return r, srv
}

func dialDevice(t *testing.T, srv *httptest.Server, deviceID, key string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/device?id=" + deviceID + "&key=" + key
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn
}

func TestDeviceReplacementClosesPriorConnectionWithCode4002(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetDeviceKey("BRW-01ABCDEF", testDeviceKey)

	r, srv := newTestRelay(t, store)

	first := dialDevice(t, srv, "BRW-01ABCDEF", testDeviceKey)
	defer first.Close()

	// Drain the connected/request_state frames so the close comes through cleanly.
	_, _, _ = first.ReadMessage()
	_, _, _ = first.ReadMessage()

	second := dialDevice(t, srv, "BRW-01ABCDEF", testDeviceKey)
	defer second.Close()

	_, _, err := first.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a close error, got %v", err)
	require.Equal(t, CloseReplaced, closeErr.Code)

	require.Eventually(t, func() bool {
		return r.GetConnectedDeviceCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDeviceAcceptRejectsMissingParams(t *testing.T) {
	store := credstore.NewMemoryStore()
	_, srv := newTestRelay(t, store)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/device?id=&key="
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, CloseBadRequest, closeErr.Code)
}

func TestDeviceAcceptRejectsBadKey(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetDeviceKey("BRW-01ABCDEF", testDeviceKey)

	_, srv := newTestRelay(t, store)

	conn := dialDevice(t, srv, "BRW-01ABCDEF", "wrong-key-wrong-key-wrong-key-00")
	defer conn.Close()

	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, CloseAuthFailed, closeErr.Code)
}

func TestSendToDeviceFalseWhenNotConnected(t *testing.T) {
	store := credstore.NewMemoryStore()
	r, _ := newTestRelay(t, store)

	ok := r.SendToDevice("BRW-01ABCDEF", map[string]interface{}{"type": "request_state"})
	require.False(t, ok)
}

func TestSendToDeviceTrueWhenConnected(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetDeviceKey("BRW-01ABCDEF", testDeviceKey)

	r, srv := newTestRelay(t, store)

	conn := dialDevice(t, srv, "BRW-01ABCDEF", testDeviceKey)
	defer conn.Close()

	require.Eventually(t, func() bool { return r.IsDeviceConnected("BRW-01ABCDEF") }, time.Second, 10*time.Millisecond)

	ok := r.SendToDevice("BRW-01ABCDEF", map[string]interface{}{"type": "request_state"})
	require.True(t, ok)
}

func TestDisconnectDeviceClosesWithCode4000(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetDeviceKey("BRW-01ABCDEF", testDeviceKey)

	r, srv := newTestRelay(t, store)

	conn := dialDevice(t, srv, "BRW-01ABCDEF", testDeviceKey)
	defer conn.Close()

	require.Eventually(t, func() bool { return r.IsDeviceConnected("BRW-01ABCDEF") }, time.Second, 10*time.Millisecond)

	received := make(chan string, 1)
	unsubscribe := r.OnDeviceMessage(func(m models.Message) {
		if m.Type() == models.TypeDeviceOffline {
			received <- m.DeviceID()
		}
	})
	defer unsubscribe()

	require.True(t, r.DisconnectDevice("BRW-01ABCDEF"))
	require.False(t, r.DisconnectDevice("BRW-01ABCDEF"))

	// Drain the connected/request_state frames sent at accept.
	_, _, _ = conn.ReadMessage()
	_, _, _ = conn.ReadMessage()
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, CloseAdminDisconnect, closeErr.Code)

	// DisconnectDevice only sends the close frame; the blocked read
	// loop's own deferred cleanup is what removes the registry entry,
	// marks the device offline in the store, and publishes
	// device_offline — exactly as it does for any other socket close.
	select {
	case deviceID := <-received:
		require.Equal(t, "BRW-01ABCDEF", deviceID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for device_offline publication after admin disconnect")
	}

	require.False(t, r.DisconnectDevice("BRW-01ABCDEF"))

	require.Eventually(t, func() bool { return !store.IsOnline("BRW-01ABCDEF") }, time.Second, 10*time.Millisecond)
	require.False(t, r.IsDeviceConnected("BRW-01ABCDEF"))
}

func TestDeviceOnlinePublishedOnConnect(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetDeviceKey("BRW-01ABCDEF", testDeviceKey)

	r, srv := newTestRelay(t, store)

	received := make(chan string, 4)

	unsubscribe := r.OnDeviceMessage(func(m models.Message) {
		if typ := m.Type(); typ != "" {
			received <- typ
		}
	})
	defer unsubscribe()

	conn := dialDevice(t, srv, "BRW-01ABCDEF", testDeviceKey)
	defer conn.Close()

	select {
	case typ := <-received:
		require.Equal(t, "device_online", typ)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for device_online publication")
	}
}

func TestPingTimeoutTerminatesAfterThreeMissedSweeps(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetDeviceKey("BRW-01ABCDEF", testDeviceKey)

	r := New(Options{
		Store:             store,
		Logger:            logger.NewTestLogger(),
		PingInterval:      time.Hour,
		ReconcileInterval: time.Hour,
	})
	defer r.Shutdown()

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialDevice(t, srv, "BRW-01ABCDEF", testDeviceKey)
	defer conn.Close()

	require.Eventually(t, func() bool { return r.IsDeviceConnected("BRW-01ABCDEF") }, time.Second, 10*time.Millisecond)

	// Three sweeps with no pong response each increment missedPings;
	// the third sweep (missed == 3 > maxMissedPings == 2) terminates.
	r.sweepPings()
	require.True(t, r.IsDeviceConnected("BRW-01ABCDEF"))

	r.sweepPings()
	require.True(t, r.IsDeviceConnected("BRW-01ABCDEF"))

	r.sweepPings()
	require.False(t, r.IsDeviceConnected("BRW-01ABCDEF"))
	require.False(t, store.IsOnline("BRW-01ABCDEF"))
}

func TestReconcileOnceMarksDisconnectedDevicesOffline(t *testing.T) {
	store := credstore.NewMemoryStore()
	_ = store.UpdateDeviceStatus(context.Background(), "BRW-DEADBEEF", true)

	r := New(Options{Store: store, Logger: logger.NewTestLogger(), PingInterval: time.Hour, ReconcileInterval: time.Hour})
	defer r.Shutdown()

	r.reconcileOnce(context.Background())

	require.False(t, store.IsOnline("BRW-DEADBEEF"))
}
