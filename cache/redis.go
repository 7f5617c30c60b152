package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/interfaces"
	"github.com/giygas/allergycheck-api/logging"
	"github.com/redis/go-redis/v9"
)

var _ interfaces.PatientCache = (*RedisCache)(nil)

const redisKeyPrefix = "allergycheck:patient:"

// RedisCache stores patient snapshots as JSON in redis with a TTL.
// Redis errors are logged and treated as misses.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache parses url, checks connectivity and returns the cache
func NewRedisCache(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client
func NewRedisCacheWithClient(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(id int) string {
	return redisKeyPrefix + strconv.Itoa(id)
}

// Get loads and decodes the snapshot of id
func (c *RedisCache) Get(ctx context.Context, id int) (*entities.Patient, bool) {
	raw, err := c.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Warn("Patient cache read failed", "patient_id", id, "error", err)
		}
		return nil, false
	}

	var patient entities.Patient
	if err := json.Unmarshal(raw, &patient); err != nil {
		logging.Warn("Dropping undecodable patient cache entry", "patient_id", id, "error", err)
		c.Invalidate(ctx, id)
		return nil, false
	}
	return &patient, true
}

// Set encodes and stores patient with the cache TTL
func (c *RedisCache) Set(ctx context.Context, patient *entities.Patient) {
	if patient == nil || c.ttl <= 0 {
		return
	}

	raw, err := json.Marshal(patient)
	if err != nil {
		logging.Warn("Failed to encode patient for cache", "patient_id", patient.ID, "error", err)
		return
	}

	if err := c.client.Set(ctx, redisKey(patient.ID), raw, c.ttl).Err(); err != nil {
		logging.Warn("Patient cache write failed", "patient_id", patient.ID, "error", err)
	}
}

// Invalidate deletes the snapshot of id
func (c *RedisCache) Invalidate(ctx context.Context, id int) {
	if err := c.client.Del(ctx, redisKey(id)).Err(); err != nil {
		logging.Warn("Patient cache delete failed", "patient_id", id, "error", err)
	}
}

// Health pings redis
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
