package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/services"

	"github.com/go-redis/redis/v8"
)

// RedisSessionStore implements services.SessionStore on Redis. Session
// expiry rides on the key TTL, so revocation and timeout need no sweeper.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore connects to Redis and returns a session store
func NewRedisSessionStore(addr, password string, db int) (*RedisSessionStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSessionStore{
		client: rdb,
		prefix: "session:",
	}, nil
}

// Save stores a session under its ID with the given TTL
func (s *RedisSessionStore) Save(ctx context.Context, session *services.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, s.prefix+session.ID, data, ttl).Err()
}

// Get retrieves a live session by ID
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*services.Session, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, pkg.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session services.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete revokes a session
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}

// Close closes the Redis connection
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
