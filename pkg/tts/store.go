package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	contractx "github.com/grandhotel/aria/agent/contract"
)

const artifactKeyPrefix = "aria:audio:"

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" split_words:"true" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD" split_words:"true"`
	TTL      time.Duration `envconfig:"TTL" split_words:"true" default:"30m"`
}

// ArtifactStore keeps rendered audio keyed by reference. With a Redis client
// the artifacts expire after the configured TTL; without one it falls back
// to process memory, same as the session state.
type ArtifactStore struct {
	redis *redis.Client
	ttl   time.Duration

	mu    sync.RWMutex
	local map[string][]byte
}

func NewArtifactStore(rdb *redis.Client, ttl time.Duration) *ArtifactStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ArtifactStore{
		redis: rdb,
		ttl:   ttl,
		local: make(map[string][]byte),
	}
}

// NewRedisArtifactStore connects to Redis and degrades to the in-memory
// fallback if it is unreachable.
func NewRedisArtifactStore(cfg RedisConfig) *ArtifactStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unavailable, keeping audio artifacts in memory")
		rdb = nil
	}

	return NewArtifactStore(rdb, cfg.TTL)
}

func (s *ArtifactStore) Put(ctx context.Context, ref string, data []byte) error {
	if s.redis != nil {
		if err := s.redis.Set(ctx, artifactKeyPrefix+ref, data, s.ttl).Err(); err != nil {
			return fmt.Errorf("store audio in redis: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	s.local[ref] = data
	s.mu.Unlock()
	return nil
}

func (s *ArtifactStore) Get(ctx context.Context, ref string) ([]byte, error) {
	if s.redis != nil {
		data, err := s.redis.Get(ctx, artifactKeyPrefix+ref).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", contractx.ErrAudioNotFound, ref)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch audio from redis: %w", err)
		}
		return data, nil
	}

	s.mu.RLock()
	data, ok := s.local[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrAudioNotFound, ref)
	}
	return data, nil
}

// Delete removes an artifact. Missing references are not an error.
func (s *ArtifactStore) Delete(ctx context.Context, ref string) error {
	if s.redis != nil {
		return s.redis.Del(ctx, artifactKeyPrefix+ref).Err()
	}

	s.mu.Lock()
	delete(s.local, ref)
	s.mu.Unlock()
	return nil
}
