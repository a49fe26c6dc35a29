// Package preferences keeps the city the user picked between runs.
package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultPrefix = "storefront"
	cityKey       = "city"
)

type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	UF   string `json:"uf"`
}

type Store interface {
	SaveCity(ctx context.Context, city City) error
	// GetCity returns ok=false when no city was saved.
	GetCity(ctx context.Context) (city City, ok bool, err error)
	ClearCity(ctx context.Context) error
}

// KV is the subset of pkg/redis.RedisDB the store needs.
type KV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

type RedisStore struct {
	kv  KV
	key string
}

func NewRedisStore(kv KV, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{kv: kv, key: prefix + ":" + cityKey}
}

func (s *RedisStore) SaveCity(ctx context.Context, city City) error {
	raw, err := json.Marshal(city)
	if err != nil {
		return fmt.Errorf("failed to encode city: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, raw, 0); err != nil {
		return fmt.Errorf("failed to save city: %w", err)
	}

	return nil
}

func (s *RedisStore) GetCity(ctx context.Context) (city City, ok bool, err error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return city, false, fmt.Errorf("failed to load city: %w", err)
	}
	if raw == "" {
		return city, false, nil
	}

	if err := json.Unmarshal([]byte(raw), &city); err != nil {
		return City{}, false, fmt.Errorf("failed to decode city: %w", err)
	}

	return city, city.ID != "", nil
}

func (s *RedisStore) ClearCity(ctx context.Context) error {
	if err := s.kv.Del(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear city: %w", err)
	}
	return nil
}

type MemoryStore struct {
	mu   sync.RWMutex
	city *City
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveCity(ctx context.Context, city City) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.city = &city
	return nil
}

func (s *MemoryStore) GetCity(ctx context.Context) (City, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.city == nil {
		return City{}, false, nil
	}
	return *s.city, true, nil
}

func (s *MemoryStore) ClearCity(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.city = nil
	return nil
}
