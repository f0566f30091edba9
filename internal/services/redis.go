package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"dice-offline/internal/config"
	"dice-offline/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisService) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *RedisService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisService) Open(ctx context.Context, name string) error {
	if err := s.client.SAdd(ctx, KeyCacheNames, name).Err(); err != nil {
		return fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return nil
}

func (s *RedisService) Names(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, KeyCacheNames).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisService) DeleteCache(ctx context.Context, name string) (bool, error) {
	tx := s.client.TxPipeline()
	removed := tx.SRem(ctx, KeyCacheNames, name)
	tx.Del(ctx, fmt.Sprintf(KeyCacheStore, name))

	if _, err := tx.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	return removed.Val() > 0, nil
}

func (s *RedisService) Match(ctx context.Context, name, key string) (*models.CachedResponse, bool, error) {
	data, err := s.client.HGet(ctx, fmt.Sprintf(KeyCacheStore, name), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to match %s in %s: %w", key, name, err)
	}

	var resp models.CachedResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached response: %w", err)
	}
	return &resp, true, nil
}

func (s *RedisService) Put(ctx context.Context, name, key string, resp *models.CachedResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal cached response: %w", err)
	}

	tx := s.client.TxPipeline()
	tx.SAdd(ctx, KeyCacheNames, name)
	tx.HSet(ctx, fmt.Sprintf(KeyCacheStore, name), key, data)

	if _, err := tx.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put %s in %s: %w", key, name, err)
	}
	return nil
}
