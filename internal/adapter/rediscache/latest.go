package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/courierops/parcel-track-system/internal/domain/models"
	wrap "github.com/courierops/parcel-track-system/pkg/logger/wrapper"
	"github.com/courierops/parcel-track-system/pkg/redis"
)

const (
	latestKeyPrefix = "parcel:latest:"
	latestTTL       = 24 * time.Hour
)

// LatestCache keeps the newest point per parcel so the current-position
// read path never has to touch the trail table. Entries expire on their
// own; the engine refreshes them on every persisted sample.
type LatestCache struct {
	client *redis.Redis
}

func NewLatestCache(client *redis.Redis) *LatestCache {
	return &LatestCache{
		client: client,
	}
}

func (c *LatestCache) SetLatest(ctx context.Context, sample *models.PositionSample) error {
	const op = "LatestCache.SetLatest"

	body, err := json.Marshal(sample)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: marshal: %w", op, err))
	}

	if err := c.client.Client.Set(ctx, latestKeyPrefix+sample.ParcelID, body, latestTTL).Err(); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// DeleteLatest drops the cached point so readers fall through to the store.
func (c *LatestCache) DeleteLatest(ctx context.Context, parcelID string) error {
	const op = "LatestCache.DeleteLatest"

	if err := c.client.Client.Del(ctx, latestKeyPrefix+parcelID).Err(); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return nil
}

// GetLatest returns the cached newest point, or (nil, nil) on a miss.
func (c *LatestCache) GetLatest(ctx context.Context, parcelID string) (*models.PositionSample, error) {
	const op = "LatestCache.GetLatest"

	body, err := c.client.Client.Get(ctx, latestKeyPrefix+parcelID).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	var sample models.PositionSample
	if err := json.Unmarshal(body, &sample); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("%s: unmarshal: %w", op, err))
	}

	return &sample, nil
}
