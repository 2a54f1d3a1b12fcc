package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"combo-auth/internal/session/domain"
)

const sessionKeyPrefix = "session:"

// RedisStore keeps sessions in Redis, keyed by token with a TTL matching the
// session expiry. Expired sessions are simply absent, which is equivalent to
// a scavenged row from the caller's point of view. SET is atomic per key, so
// concurrent logins for one token leave exactly one value behind.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore returns a session store backed by client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

func (s *RedisStore) FindByToken(ctx context.Context, token string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Replace(ctx context.Context, sess domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		// Already expired; an absent key means the same thing.
		return s.DeleteByToken(ctx, sess.Token)
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.Token), raw, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteByToken(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
