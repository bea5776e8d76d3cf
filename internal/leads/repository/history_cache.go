package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"salesdesk_backend/internal/leads/domain"
	"salesdesk_backend/internal/leads/ports"
	"salesdesk_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// HistoryCache is a read-through redis cache in front of the historical
// outcome aggregation, which scans every closed workflow and is too heavy to
// run on each forecast request. Cache failures degrade to the source query;
// a forecast must never fail because redis is down.
type HistoryCache struct {
	source ports.HistoryReader
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewHistoryCache wraps source with a redis cache. A nil client disables
// caching entirely.
func NewHistoryCache(source ports.HistoryReader, client *redis.Client, ttl time.Duration, log *logger.Logger) *HistoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &HistoryCache{source: source, client: client, ttl: ttl, log: log}
}

func (c *HistoryCache) HistoricalOutcome(ctx context.Context, query domain.HistoryQuery) (*domain.HistoricalOutcome, error) {
	if c.client == nil {
		return c.source.HistoricalOutcome(ctx, query)
	}

	key := cacheKey(query)
	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var outcome domain.HistoricalOutcome
		if err := json.Unmarshal(cached, &outcome); err == nil {
			return &outcome, nil
		}
		// Corrupt entry: drop it and fall through to the source.
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		if c.log != nil {
			c.log.ExternalServiceError("redis", "historical_outcome_get", err)
		}
	}

	outcome, err := c.source.HistoricalOutcome(ctx, query)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(outcome); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil && c.log != nil {
			c.log.ExternalServiceError("redis", "historical_outcome_set", err)
		}
	}
	return outcome, nil
}

func cacheKey(query domain.HistoryQuery) string {
	return fmt.Sprintf("leads:hist:%s:%s:%d-%d",
		query.Territory, query.RevenueBucket, query.InterestMin, query.InterestMax)
}
