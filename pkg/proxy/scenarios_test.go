package proxy

import (
	"testing"
	"time"

	"github.com/brewlink/relay/pkg/credstore"
	"github.com/brewlink/relay/pkg/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestOfflineQueueFlushNotifiesOriginatingClient(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetSession(testToken, credstore.Session{UserID: "user-1", AccessExpiresAt: time.Now().Add(time.Hour)})
	store.GrantOwnership("user-1", "BRW-01ABCDEF")

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sender := NewMockSender(ctrl)
	sender.EXPECT().IsDeviceConnected("BRW-01ABCDEF").Return(false).AnyTimes()
	sender.EXPECT().GetDeviceLastSeen("BRW-01ABCDEF").Return(time.Time{}).AnyTimes()
	sender.EXPECT().SendToDevice("BRW-01ABCDEF", gomock.Any()).Return(false).Times(3)
	sender.EXPECT().OnDeviceMessage(gomock.Any()).Return(func() {})

	p, srv := newTestProxy(t, store, sender)

	client := dialClient(t, srv, testToken, "BRW-01ABCDEF")
	defer client.Close()

	_ = readTyped(t, client) // connected

	for i := 1; i <= 3; i++ {
		require.NoError(t, client.WriteJSON(models.Message{"type": "brew_start"}))

		status := readTyped(t, client)
		require.Equal(t, models.TypeDeviceStatus, status.Type())
		require.EqualValues(t, i, status["queuedMessages"])
	}

	require.Equal(t, 3, p.queues.length("BRW-01ABCDEF"))

	// Device comes online: flush succeeds for every entry this time.
	flushSender := NewMockSender(ctrl)
	flushSender.EXPECT().SendToDevice("BRW-01ABCDEF", gomock.Any()).Return(true).Times(3)
	p.sender = flushSender

	p.flushQueue("BRW-01ABCDEF", p.now())

	for i := 0; i < 3; i++ {
		sent := readTyped(t, client)
		require.Equal(t, models.TypeQueuedMessageSent, sent.Type())
		require.Equal(t, "brew_start", sent["messageType"])
	}

	require.Equal(t, 0, p.queues.length("BRW-01ABCDEF"))
}

func TestQueueTTLDropsExpiredEntriesOnFlush(t *testing.T) {
	store := credstore.NewMemoryStore()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sender := NewMockSender(ctrl)
	sender.EXPECT().OnDeviceMessage(gomock.Any()).Return(func() {})

	p, _ := newTestProxy(t, store, sender)
	p.queues.ttl = 10 * time.Second

	base := time.Now()
	p.queues.enqueue("BRW-01ABCDEF", &PendingMessage{
		Message:              models.Message{"type": "brew_start", "timestamp": base.UnixMilli()},
		EnqueuedAt:           base,
		OriginatingSessionID: "sess-1",
	})

	// 11s later: the entry has expired, so flush should not attempt a send.
	p.flushQueue("BRW-01ABCDEF", base.Add(11*time.Second))

	require.Equal(t, 0, p.queues.length("BRW-01ABCDEF"))
}

func TestClientPingTimeoutTerminatesAfterThreeMissedSweeps(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetSession(testToken, credstore.Session{UserID: "user-1", AccessExpiresAt: time.Now().Add(time.Hour)})
	store.GrantOwnership("user-1", "BRW-01ABCDEF")

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sender := NewMockSender(ctrl)
	sender.EXPECT().IsDeviceConnected("BRW-01ABCDEF").Return(true).AnyTimes()
	sender.EXPECT().GetDeviceLastSeen("BRW-01ABCDEF").Return(time.Now()).AnyTimes()
	// The device is online and the cache is empty, so hydration on
	// connect asks the device for its state.
	sender.EXPECT().SendToDevice("BRW-01ABCDEF", gomock.Any()).Return(true).AnyTimes()
	sender.EXPECT().OnDeviceMessage(gomock.Any()).Return(func() {})

	p, srv := newTestProxy(t, store, sender)

	client := dialClient(t, srv, testToken, "BRW-01ABCDEF")
	defer client.Close()

	_ = readTyped(t, client) // connected

	require.Eventually(t, func() bool { return p.GetConnectedClientCount() == 1 }, time.Second, 10*time.Millisecond)

	p.sweepPings()
	require.Equal(t, 1, p.GetConnectedClientCount())

	p.sweepPings()
	require.Equal(t, 1, p.GetConnectedClientCount())

	p.sweepPings()
	require.Equal(t, 0, p.GetConnectedClientCount())
}

func TestTokenRefreshReplacesExpiryTimer(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.SetSession(testToken, credstore.Session{UserID: "user-1", AccessExpiresAt: time.Now().Add(600 * time.Second)})
	store.GrantOwnership("user-1", "BRW-01ABCDEF")

	const newToken = "refreshed-token-001"
	store.SetSession(newToken, credstore.Session{UserID: "user-1", AccessExpiresAt: time.Now().Add(1800 * time.Second)})

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sender := NewMockSender(ctrl)
	sender.EXPECT().IsDeviceConnected("BRW-01ABCDEF").Return(false).AnyTimes()
	sender.EXPECT().GetDeviceLastSeen("BRW-01ABCDEF").Return(time.Time{}).AnyTimes()
	sender.EXPECT().OnDeviceMessage(gomock.Any()).Return(func() {})

	p, srv := newTestProxy(t, store, sender)

	client := dialClient(t, srv, testToken, "BRW-01ABCDEF")
	defer client.Close()

	_ = readTyped(t, client) // connected

	cc := p.registry.allSessions()[0]
	originalTimer := cc.tokenTimer
	require.NotNil(t, originalTimer)

	require.NoError(t, client.WriteJSON(models.Message{"type": models.TypeRefreshAuth, "token": newToken}))

	reply := readTyped(t, client)
	require.Equal(t, models.TypeAuthRefreshed, reply.Type())
	require.Equal(t, true, reply["success"])

	cc.tokenTimerMu.Lock()
	refreshedTimer := cc.tokenTimer
	cc.tokenTimerMu.Unlock()

	require.NotSame(t, originalTimer, refreshedTimer)
	require.WithinDuration(t, time.Now().Add(1800*time.Second), cc.getAccessTokenExpiresAt(), 2*time.Second)
}
