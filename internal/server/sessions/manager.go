package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophlink/internal/common"
	"github.com/dmitrijs2005/gophlink/internal/logging"
)

const (
	// DefaultTimeout is the sliding session lifetime.
	DefaultTimeout = 30 * time.Minute
	// TokenBytes is the amount of randomness in a token before base64 encoding.
	TokenBytes = 64
)

// Manager owns the session lifecycle on top of a Store.
type Manager struct {
	store   Store
	timeout time.Duration
	logger  logging.Logger
	now     func() time.Time
	newTok  func() (string, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used by the janitor.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func withTokenSource(f func() (string, error)) Option {
	return func(m *Manager) { m.newTok = f }
}

// NewManager returns a manager with the given sliding timeout; a
// non-positive timeout selects DefaultTimeout.
func NewManager(store Store, timeout time.Duration, opts ...Option) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m := &Manager{
		store:   store,
		timeout: timeout,
		logger:  logging.Nop(),
		now:     time.Now,
		newTok:  func() (string, error) { return common.MakeRandBase64String(TokenBytes) },
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Timeout() time.Duration { return m.timeout }

// Create mints a fresh token for userID.
func (m *Manager) Create(ctx context.Context, userID int64) (Session, error) {
	token, err := m.newTok()
	if err != nil {
		return Session{}, fmt.Errorf("%w: generating token: %v", common.ErrorInternal, err)
	}
	s := Session{Token: token, UserID: userID, Expiration: m.now().Add(m.timeout)}
	if err := m.store.Save(ctx, s, m.timeout); err != nil {
		return Session{}, fmt.Errorf("%w: saving session: %v", common.ErrorInternal, err)
	}
	return s, nil
}

// Validate resolves token and extends its expiration. Missing, unknown and
// expired tokens all yield common.ErrInvalidOrMissingSession.
func (m *Manager) Validate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, common.ErrInvalidOrMissingSession
	}
	s, err := m.store.Touch(ctx, token, m.now(), m.timeout)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, common.ErrInvalidOrMissingSession
		}
		return Session{}, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return s, nil
}

// Revoke removes token. Revoking an absent token is not an error; the
// boolean reports whether anything was removed.
func (m *Manager) Revoke(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	ok, err := m.store.Delete(ctx, token)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return ok, nil
}

// Sweep evicts expired sessions once.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	return m.store.Sweep(ctx, m.now())
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Warn(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				m.logger.Debug(ctx, "expired sessions evicted", "count", n)
			}
		}
	}
}
