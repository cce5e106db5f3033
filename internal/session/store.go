package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rhcare/clinic-api/internal/domain"
)

// Store issues and resolves opaque bearer tokens. A token is bound to one
// credential at issuance and stays valid until revoked on logout.
type Store interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(token string) string {
	return "session:" + token
}

func (s *RedisStore) Issue(ctx context.Context, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, sessionKey(token), userID, 0).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Resolve(ctx context.Context, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	userID, err := s.client.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return "", domain.ErrInvalidSession
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	return userID, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.client.Del(ctx, sessionKey(token)).Err()
}

// newToken returns 256 bits of randomness, hex encoded.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
