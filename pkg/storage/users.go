package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rubiojr/textboard/pkg/core"
	"github.com/rubiojr/textboard/pkg/identity"
)

// FindOrCreateUser returns the user for userAgent and deviceID, creating it
// on first sight. An empty deviceID is derived from the user agent, so
// visitors sharing a browser string and no device id share a user. A known
// user seen from a new ipAddress has its address and updated_at refreshed.
func (s *Store) FindOrCreateUser(ctx context.Context, userAgent, ipAddress, deviceID string) (*core.User, error) {
	deviceID, hash := identity.Resolve(userAgent, deviceID)

	user, err := s.getUser(ctx, hash)
	switch {
	case err == nil:
		if user.IPAddress != ipAddress {
			now, ts := s.timestamp()
			if _, err := s.db.ExecContext(ctx,
				"UPDATE users SET ip_address = ?, updated_at = ? WHERE hash = ?",
				ipAddress, ts, hash); err != nil {
				return nil, persistErr(fmt.Sprintf("updating user %s", hash), err)
			}
			user.IPAddress = ipAddress
			user.UpdatedAt = now
		}
		return user, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, persistErr(fmt.Sprintf("looking up user %s", hash), err)
	}

	// Two first posts from the same visitor can race here; the loser's insert
	// is ignored and both read the same row back.
	_, ts := s.timestamp()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (hash, ip_address, user_agent, device_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING`,
		hash, ipAddress, userAgent, deviceID, ts, ts); err != nil {
		return nil, persistErr(fmt.Sprintf("creating user %s", hash), err)
	}

	user, err = s.getUser(ctx, hash)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("reading new user %s", hash), err)
	}
	logger.Debugf("created user %s", hash)
	return user, nil
}

func (s *Store) getUser(ctx context.Context, hash string) (*core.User, error) {
	var u core.User
	var ip, ua, device sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, ip_address, user_agent, device_id, created_at, updated_at
		FROM users WHERE hash = ?`, hash).
		Scan(&u.Hash, &ip, &ua, &device, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.IPAddress = ip.String
	u.UserAgent = ua.String
	u.DeviceID = device.String
	return &u, nil
}
