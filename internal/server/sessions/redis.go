package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("sessions: redis unavailable")

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "gophlink:session"

// RedisStore keeps sessions in Redis so several server processes can share
// them. Keys hold the SHA-256 of the token, never the token itself, and
// Redis key expiry implements the timeout.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

func (s *RedisStore) Save(ctx context.Context, sess Session, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, s.key(sess.Token), strconv.FormatInt(sess.UserID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Touch uses GETEX, which reads the value and resets the TTL in one command.
func (s *RedisStore) Touch(ctx context.Context, token string, now time.Time, ttl time.Duration) (Session, error) {
	val, err := s.redis.GetEx(ctx, s.key(token), ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// unreadable entry: drop it rather than trust it
		_ = s.redis.Del(ctx, s.key(token)).Err()
		return Session{}, ErrNotFound
	}
	return Session{Token: token, UserID: userID, Expiration: now.Add(ttl)}, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Sweep is a no-op: Redis expires keys on its own.
func (s *RedisStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
