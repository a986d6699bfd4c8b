package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store against the device/session/ownership
// tables a pairing and auth service (out of scope here) maintains.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore dials dsn and returns a ready PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("credstore: failed to open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("credstore: ping failed: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) VerifyDeviceKey(ctx context.Context, deviceID, key string) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM device_keys
		WHERE device_id = $1 AND key_hash = crypt($2, key_hash)`, deviceID, key)

	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("credstore: verify device key: %w", err)
	}

	return count > 0, nil
}

func (s *PostgresStore) VerifyAccessToken(ctx context.Context, token string) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT u.id, u.email, s.access_expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.access_token = $1 AND s.access_expires_at > now()`, token)

	var sess Session

	if err := row.Scan(&sess.UserID, &sess.UserEmail, &sess.AccessExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("credstore: verify access token: %w", err)
	}

	return &sess, nil
}

func (s *PostgresStore) UserOwnsDevice(ctx context.Context, userID, deviceID string) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM device_ownership
		WHERE user_id = $1 AND device_id = $2`, userID, deviceID)

	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("credstore: user owns device: %w", err)
	}

	return count > 0, nil
}

func (s *PostgresStore) UpdateDeviceStatus(ctx context.Context, deviceID string, online bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE devices SET online = $2, last_seen = $3 WHERE device_id = $1`,
		deviceID, online, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("credstore: update device status: %w", err)
	}

	return nil
}

func (s *PostgresStore) SyncOnlineDevicesWithConnections(ctx context.Context, connectedIDs map[string]struct{}) (int, error) {
	ids := make([]string, 0, len(connectedIDs))
	for id := range connectedIDs {
		ids = append(ids, id)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE devices SET online = false
		WHERE online = true AND NOT (device_id = ANY($1))`, ids)
	if err != nil {
		return 0, fmt.Errorf("credstore: sync online devices: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
