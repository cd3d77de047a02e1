package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillproof/testing-service/internal/repositories"
)

const sessionKeyPrefix = "session:"

// SessionRedis revokes authentication sessions stored by the identity
// service. Sessions are keyed by the account email; invalidating one forces
// the next request to re-authenticate, which is how a submitted test is made
// non-resumable.
type SessionRedis struct {
	client *redis.Client
}

func NewSessionRedis(client *redis.Client) repositories.SessionRepository {
	return &SessionRedis{client: client}
}

func (s *SessionRedis) Invalidate(ctx context.Context, email string) error {
	if s.client == nil {
		// No session backend configured (tests, local runs): nothing to revoke.
		return nil
	}

	if err := s.client.Del(ctx, sessionKey(email)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate session for %s: %w", email, err)
	}
	return nil
}

// Store records a session token. Only the identity service calls this in
// production; it is exposed for integration tests of the revocation path.
func (s *SessionRedis) Store(ctx context.Context, email, token string, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	return s.client.Set(ctx, sessionKey(email), token, ttl).Err()
}

// Exists reports whether the account currently holds a session.
func (s *SessionRedis) Exists(ctx context.Context, email string) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	count, err := s.client.Exists(ctx, sessionKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session for %s: %w", email, err)
	}
	return count > 0, nil
}

func sessionKey(email string) string {
	return sessionKeyPrefix + email
}
