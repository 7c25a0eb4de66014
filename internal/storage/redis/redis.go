package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shunta27/auth0-poc-1/internal/models"
	"github.com/shunta27/auth0-poc-1/internal/storage"
)

// Store keeps hosted-login sessions (token sets keyed by session ID) and
// the short-lived OAuth state nonces. Both expire on their own; nothing
// here is ever scanned or enumerated.
type Store struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func New(ctx context.Context, addr, pass string, db int, sessionTTL time.Duration) (*Store, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{
		client:     client,
		sessionTTL: sessionTTL,
	}, nil
}

func (s *Store) SaveSession(ctx context.Context, sessionID string, ts models.TokenSet) error {
	const op = "storage.redis.SaveSession"

	data, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := fmt.Sprintf("session:%s", sessionID)

	if err := s.client.Set(ctx, key, data, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Session(ctx context.Context, sessionID string) (models.TokenSet, error) {
	const op = "storage.redis.Session"

	key := fmt.Sprintf("session:%s", sessionID)

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.TokenSet{}, storage.ErrSessionNotFound
	}
	if err != nil {
		return models.TokenSet{}, fmt.Errorf("%s: %w", op, err)
	}

	var ts models.TokenSet
	if err := json.Unmarshal(data, &ts); err != nil {
		return models.TokenSet{}, fmt.Errorf("%s: %w", op, err)
	}

	return ts, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	const op = "storage.redis.DeleteSession"

	key := fmt.Sprintf("session:%s", sessionID)

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveState records a login-flow state nonce for the given window.
func (s *Store) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	const op = "storage.redis.SaveState"

	key := fmt.Sprintf("oauth:state:%s", state)

	if err := s.client.Set(ctx, key, "pending", ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConsumeState atomically checks and removes a state nonce, so a
// callback can only ever redeem it once.
func (s *Store) ConsumeState(ctx context.Context, state string) error {
	const op = "storage.redis.ConsumeState"

	key := fmt.Sprintf("oauth:state:%s", state)

	err := s.client.GetDel(ctx, key).Err()
	if errors.Is(err, redis.Nil) {
		return storage.ErrStateNotFound
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Close() {
	s.client.Close()
}
