package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/timer"
	"github.com/redis/go-redis/v9"
)

// CountdownStore persists countdown markers in Redis. A marker outlives its
// countdown by grace so an expired attempt is still detected on reload.
type CountdownStore struct {
	client *redis.Client
	grace  time.Duration
}

func NewCountdownStore(client *redis.Client, grace time.Duration) *CountdownStore {
	return &CountdownStore{client: client, grace: grace}
}

var _ timer.Store = (*CountdownStore)(nil)

func (s *CountdownStore) Start(ctx context.Context, key timer.Key, m timer.Marker) (timer.Marker, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return timer.Marker{}, fmt.Errorf("failed to encode countdown marker: %w", err)
	}

	created, err := s.client.SetNX(ctx, key.String(), data, m.Duration+s.grace).Result()
	if err != nil {
		return timer.Marker{}, fmt.Errorf("failed to store countdown marker: %w", err)
	}
	if created {
		return m, nil
	}

	existing, ok, err := s.Load(ctx, key)
	if err != nil {
		return timer.Marker{}, err
	}
	if !ok {
		// Released between SETNX and GET; the caller's marker is as good as any.
		return s.Start(ctx, key, m)
	}
	return existing, nil
}

func (s *CountdownStore) Load(ctx context.Context, key timer.Key) (timer.Marker, bool, error) {
	data, err := s.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return timer.Marker{}, false, nil
	}
	if err != nil {
		return timer.Marker{}, false, fmt.Errorf("failed to load countdown marker: %w", err)
	}

	var m timer.Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return timer.Marker{}, false, fmt.Errorf("failed to decode countdown marker: %w", err)
	}
	return m, true, nil
}

func (s *CountdownStore) Release(ctx context.Context, key timer.Key) (bool, error) {
	n, err := s.client.Del(ctx, key.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to clear countdown marker: %w", err)
	}
	return n > 0, nil
}
