package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const narrationKeyPrefix = "narration:"

var narrationCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "story_service_narration_cache_total",
		Help: "Narration cache lookups partitioned by result (hit, miss, error).",
	},
	[]string{"result"},
)

// NarrationCache хранит готовую озвучку по тексту.
type NarrationCache interface {
	// Get возвращает аудио и true, если текст уже озвучивался.
	Get(ctx context.Context, text string) (Audio, bool, error)
	Set(ctx context.Context, text string, audio Audio) error
}

type redisNarrationCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisNarrationCache создает кэш озвучки в Redis. Ключ - sha256 текста.
func NewRedisNarrationCache(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) NarrationCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisNarrationCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("NarrationCache"),
	}
}

// NarrationKey - ключ кэша для текста.
func NarrationKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return narrationKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *redisNarrationCache) Get(ctx context.Context, text string) (Audio, bool, error) {
	fields, err := c.client.HGetAll(ctx, NarrationKey(text)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		narrationCacheTotal.With(prometheus.Labels{"result": "error"}).Inc()
		return Audio{}, false, fmt.Errorf("narration cache get: %w", err)
	}
	data, ok := fields["data"]
	if !ok || data == "" {
		narrationCacheTotal.With(prometheus.Labels{"result": "miss"}).Inc()
		return Audio{}, false, nil
	}
	narrationCacheTotal.With(prometheus.Labels{"result": "hit"}).Inc()
	return Audio{MIMEType: fields["mime"], Data: []byte(data)}, true, nil
}

func (c *redisNarrationCache) Set(ctx context.Context, text string, audio Audio) error {
	key := NarrationKey(text)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "mime", audio.MIMEType, "data", audio.Data)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("narration cache set: %w", err)
	}
	c.logger.Debug("Narration cached", zap.String("key", key), zap.Int("bytes", len(audio.Data)))
	return nil
}
