// Package sessions issues, validates with sliding renewal, and revokes the
// opaque bearer tokens handed out on login.
package sessions

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store for tokens that are absent or expired.
var ErrNotFound = errors.New("sessions: not found")

// Session is the server-side state behind a token.
type Session struct {
	Token      string
	UserID     int64
	Expiration time.Time
}

// Store persists sessions. Implementations must make Touch a single atomic
// lookup-and-extend so concurrent connections cannot resurrect an expired
// or revoked token.
type Store interface {
	// Save inserts s, replacing any entry with the same token. ttl equals
	// s.Expiration minus the caller's clock.
	Save(ctx context.Context, s Session, ttl time.Duration) error
	// Touch resolves token and, if it has not expired at now, moves its
	// expiration to now+ttl. Expired entries are evicted and reported as ErrNotFound.
	Touch(ctx context.Context, token string, now time.Time, ttl time.Duration) (Session, error)
	// Delete removes token and reports whether it was present.
	Delete(ctx context.Context, token string) (bool, error)
	// Sweep evicts every entry expired at now and returns how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
