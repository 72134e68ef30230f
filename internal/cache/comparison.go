package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retailinsight/backend-go/internal/config"
	"github.com/retailinsight/backend-go/internal/domain"
)

const (
	comparisonKeyPrefix = "comparison:report"
	scanBatchSize       = 100
)

// ComparisonCache caches year-over-year comparison reports per product and
// requested year set. Reports are cheap to rebuild, so the cache is purely a
// latency optimization and is invalidated whenever a new snapshot lands.
type ComparisonCache interface {
	GetReports(ctx context.Context, productID domain.ProductID, years []int) ([]domain.ComparisonReport, bool, error)
	SetReports(ctx context.Context, productID domain.ProductID, years []int, reports []domain.ComparisonReport) error
	InvalidateAll(ctx context.Context) error
}

type redisComparisonCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopComparisonCache struct{}

func NewComparisonCache(cfg config.CacheConfig) (ComparisonCache, error) {
	if !cfg.Enabled {
		return &noopComparisonCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisComparisonCache{client: client, ttl: ttl}, nil
}

func NewNoopComparisonCache() ComparisonCache {
	return &noopComparisonCache{}
}

func (c *redisComparisonCache) GetReports(ctx context.Context, productID domain.ProductID, years []int) ([]domain.ComparisonReport, bool, error) {
	key := buildComparisonKey(productID, years)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var reports []domain.ComparisonReport
	if err := json.Unmarshal(payload, &reports); err != nil {
		return nil, false, fmt.Errorf("decode comparison cache: %w", err)
	}

	return reports, true, nil
}

func (c *redisComparisonCache) SetReports(ctx context.Context, productID domain.ProductID, years []int, reports []domain.ComparisonReport) error {
	key := buildComparisonKey(productID, years)
	payload, err := json.Marshal(reports)
	if err != nil {
		return fmt.Errorf("encode comparison cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisComparisonCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, comparisonKeyPrefix, scanBatchSize)
}

func (n *noopComparisonCache) GetReports(ctx context.Context, productID domain.ProductID, years []int) ([]domain.ComparisonReport, bool, error) {
	return nil, false, nil
}

func (n *noopComparisonCache) SetReports(ctx context.Context, productID domain.ProductID, years []int, reports []domain.ComparisonReport) error {
	return nil
}

func (n *noopComparisonCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildComparisonKey(productID domain.ProductID, years []int) string {
	parts := make([]string, 0, len(years)+1)
	parts = append(parts, "product="+string(productID))
	for _, y := range years {
		parts = append(parts, "year="+strconv.Itoa(y))
	}

	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s", comparisonKeyPrefix, hex.EncodeToString(hash[:]))
}
