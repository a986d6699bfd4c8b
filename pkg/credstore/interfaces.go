// Package credstore defines the Credential/Ownership Store collaborator
// contract and ships a Postgres-backed adapter plus an in-memory one
// for tests.
package credstore

//go:generate mockgen -destination=mock_store.go -package=credstore github.com/brewlink/relay/pkg/credstore Store

import (
	"context"
	"time"
)

// Session is what a valid access token resolves to.
type Session struct {
	UserID          string
	UserEmail       string
	AccessExpiresAt time.Time
}

// Store is the external Credential/Ownership Store. The relay plane
// never persists across restarts itself; this is its only window into
// durable device keys, session tokens, ownership, and online flags.
type Store interface {
	// VerifyDeviceKey reports whether key is the current secret for
	// device id.
	VerifyDeviceKey(ctx context.Context, deviceID, key string) (bool, error)

	// VerifyAccessToken resolves a session access token, or returns
	// (nil, nil) if the token does not resolve to a live session.
	VerifyAccessToken(ctx context.Context, token string) (*Session, error)

	// UserOwnsDevice reports whether userID owns deviceID.
	UserOwnsDevice(ctx context.Context, userID, deviceID string) (bool, error)

	// UpdateDeviceStatus persists the device's online/offline flag.
	UpdateDeviceStatus(ctx context.Context, deviceID string, online bool) error

	// SyncOnlineDevicesWithConnections marks any device flagged online
	// in persistence but absent from connectedIDs as offline, and
	// returns how many rows were corrected.
	SyncOnlineDevicesWithConnections(ctx context.Context, connectedIDs map[string]struct{}) (staleCount int, err error)
}
