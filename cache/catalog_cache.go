package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"CadenzaFM/model"

	"github.com/redis/go-redis/v9"
)

const (
	catalogKey  = "catalog:tracks"
	ingestedKey = "catalog:ingested"

	catalogTTL = 10 * time.Minute
	// Ingest markers outlive many scans but do eventually expire, so a
	// wiped bucket re-ingests after the TTL rather than never.
	ingestedTTL = 30 * 24 * time.Hour
)

// GetCachedCatalog returns the cached track list, or redis.Nil-wrapped
// miss when the cache is cold.
func GetCachedCatalog(ctx context.Context) ([]model.Track, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := RedisClient.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, err
	}

	var tracks []model.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached catalog: %w", err)
	}
	return tracks, nil
}

// SetCachedCatalog stores the track list with a short TTL.
func SetCachedCatalog(ctx context.Context, tracks []model.Track) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := RedisClient.Set(ctx, catalogKey, data, catalogTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache catalog: %w", err)
	}
	return nil
}

// InvalidateCatalog drops the cached track list. Called after a scan
// changes the library.
func InvalidateCatalog(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Del(ctx, catalogKey).Err()
}

// IsIngested reports whether a content hash has already been uploaded.
// The ingest set is the explicit idempotency cache for the scanner:
// membership is keyed by content identity (SHA-256), not by path.
func IsIngested(ctx context.Context, contentHash string) (bool, error) {
	if RedisClient == nil {
		return false, fmt.Errorf("Redis client not initialized")
	}

	ok, err := RedisClient.SIsMember(ctx, ingestedKey, contentHash).Result()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to check ingest set: %w", err)
	}
	return ok, nil
}

// MarkIngested records a content hash as uploaded and refreshes the
// set's lifetime.
func MarkIngested(ctx context.Context, contentHash string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := RedisClient.SAdd(ctx, ingestedKey, contentHash).Err(); err != nil {
		return fmt.Errorf("failed to mark ingested: %w", err)
	}
	if err := RedisClient.Expire(ctx, ingestedKey, ingestedTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh ingest set TTL: %w", err)
	}
	return nil
}
