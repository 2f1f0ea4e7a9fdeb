package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"contentengine/internal/engine"
)

const (
	// DefaultCacheTTL is how long a keyword score stays cached.
	DefaultCacheTTL = 10 * time.Minute

	cacheKeyPrefix = "contentengine:trend:"
	// absentMarker records that the upstream had no score for a keyword.
	absentMarker = "-"
	pingTimeout  = 3 * time.Second
)

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisCache is a read-through cache in front of another provider.
// Redis failures never fail a lookup; they only bypass the cache.
type RedisCache struct {
	client *redis.Client
	next   Provider
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps next. A non-positive ttl selects DefaultCacheTTL.
func NewRedisCache(client *redis.Client, next Provider, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("trends: redis cache requires a client")
	}
	if next == nil {
		return nil, errors.New("trends: redis cache requires an upstream provider")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: slog.Default().With("component", "trend_cache"),
	}, nil
}

// Name reports the wrapped provider.
func (c *RedisCache) Name() string { return "redis(" + c.next.Name() + ")" }

// Lookup answers cached keywords from Redis and asks the upstream only for the rest.
func (c *RedisCache) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	keywords = distinctKeywords(keywords)
	if len(keywords) == 0 {
		return nil, nil
	}

	keys := make([]string, len(keywords))
	for i, kw := range keywords {
		keys[i] = cacheKeyPrefix + kw
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("trend cache read failed, bypassing", "error", err)
		return c.next.Lookup(ctx, keywords)
	}

	var (
		cached  []engine.TrendSignal
		missing []string
	)
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, keywords[i])
			continue
		}
		if raw == absentMarker {
			continue
		}
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			missing = append(missing, keywords[i])
			continue
		}
		cached = append(cached, engine.TrendSignal{Keyword: keywords[i], TrendScore: score})
	}
	if len(missing) == 0 {
		return cached, nil
	}

	fresh, err := c.next.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}
	c.store(ctx, missing, fresh)
	return mergeTrendSignals(cached, fresh), nil
}

func (c *RedisCache) store(ctx context.Context, asked []string, fresh []engine.TrendSignal) {
	found := make(map[string]float64, len(fresh))
	for _, s := range fresh {
		found[NormalizeKeyword(s.Keyword)] = s.TrendScore
	}

	pipe := c.client.Pipeline()
	for _, kw := range asked {
		value := absentMarker
		if score, ok := found[kw]; ok {
			value = strconv.FormatFloat(score, 'f', -1, 64)
		}
		pipe.Set(ctx, cacheKeyPrefix+kw, value, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("trend cache write failed", "error", err)
	}
}

// Forget drops cached entries so the next lookup asks the upstream again.
func (c *RedisCache) Forget(ctx context.Context, keywords ...string) error {
	keywords = distinctKeywords(keywords)
	if len(keywords) == 0 {
		return nil
	}
	keys := make([]string, len(keywords))
	for i, kw := range keywords {
		keys[i] = cacheKeyPrefix + kw
	}
	return c.client.Del(ctx, keys...).Err()
}

// Recorder stores submitted trend signals.
type Recorder interface {
	Record(ctx context.Context, s Signal) (Signal, error)
}

// RecordThrough returns a Recorder that stores signals in sink and then
// forgets the cached entry for their keyword, so a keyword cached as absent
// shows up as soon as it is submitted.
func (c *RedisCache) RecordThrough(sink Recorder) Recorder {
	return &invalidatingRecorder{cache: c, sink: sink}
}

type invalidatingRecorder struct {
	cache *RedisCache
	sink  Recorder
}

func (r *invalidatingRecorder) Record(ctx context.Context, s Signal) (Signal, error) {
	stored, err := r.sink.Record(ctx, s)
	if err != nil {
		return Signal{}, err
	}
	if err := r.cache.Forget(ctx, stored.Keyword); err != nil {
		r.cache.logger.Warn("trend cache invalidation failed", "keyword", stored.Keyword, "error", err)
	}
	return stored, nil
}

func distinctKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = NormalizeKeyword(kw)
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
