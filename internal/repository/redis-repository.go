package repository

import (
	"access_service/internal/database/redis"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	redis_v9 "github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis_v9.Client
}

func NewRedisRepo() *RedisRepo {
	return &RedisRepo{
		client: redis.Redis_Client,
	}
}

func (rr *RedisRepo) SaveStructCached(ctx context.Context, key string, model any, ttl time.Duration) error {
	val, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("error saving struct to cache: %s", err)
	}
	err = rr.client.Set(ctx, key, val, ttl).Err()
	if err != nil {
		return fmt.Errorf("error saving struct to cache: %s", err)
	}
	return nil
}

func (rr *RedisRepo) GetStructCached(ctx context.Context, key string, model any) error {
	coded, err := rr.client.Get(ctx, key).Bytes()
	if err != nil {
		return fmt.Errorf("error get struct in cache: %s", err)
	}

	return json.Unmarshal(coded, model)
}

func (rr *RedisRepo) DeleteKey(ctx context.Context, key string) {
	if err := rr.client.Del(ctx, key).Err(); err != nil {
		log.Printf("error deleting cache key %s: %s", key, err)
	}
}
