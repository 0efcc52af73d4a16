package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.pilab.hu/loginbroker/domain"
)

// RedisPendingLoginStore implements domain.PendingLoginStore on Redis, for
// deployments running more than one broker instance behind a balancer.
// GETDEL gives the per-token consume-once guarantee across instances.
type RedisPendingLoginStore struct {
	client *redis.Client
	prefix string
}

// NewRedisPendingLoginStore creates a Redis-backed pending login store.
// prefix namespaces the keys, e.g. "loginbroker".
func NewRedisPendingLoginStore(client *redis.Client, prefix string) *RedisPendingLoginStore {
	return &RedisPendingLoginStore{client: client, prefix: prefix}
}

func (s *RedisPendingLoginStore) key(state string) string {
	return fmt.Sprintf("%s:pending:%s", s.prefix, state)
}

// Put stores the pending login with a TTL matching its expiry. A login that
// already expired is refused: silently skipping the write would hand the
// caller a state token that was never persisted.
func (s *RedisPendingLoginStore) Put(ctx context.Context, login domain.PendingLogin) error {
	payload, err := json.Marshal(login)
	if err != nil {
		return fmt.Errorf("failed to marshal pending login: %w", err)
	}
	ttl := time.Until(login.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("pending login for state %q is already expired", login.State)
	}
	if err := s.client.Set(ctx, s.key(login.State), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending login in redis: %w", err)
	}
	return nil
}

// Consume atomically retrieves and deletes the pending login via GETDEL.
func (s *RedisPendingLoginStore) Consume(ctx context.Context, state string) (*domain.PendingLogin, error) {
	payload, err := s.client.GetDel(ctx, s.key(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrPendingLoginNotFound
		}
		return nil, fmt.Errorf("failed to consume pending login from redis: %w", err)
	}
	var login domain.PendingLogin
	if err := json.Unmarshal(payload, &login); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending login: %w", err)
	}
	return &login, nil
}
