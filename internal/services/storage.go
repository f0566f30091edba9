package services

import (
	"context"

	"dice-offline/internal/models"
)

//go:generate go tool mockgen -destination=./mocks/storage_mock.go -package=mocks . KV,CacheStorage

// KV is the string key-value store behind the tray and combat state.
// Get reports ok=false for an absent key, which is distinct from "".
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// CacheStorage holds named cache stores of request key -> response.
// Each operation is atomic for a single key.
type CacheStorage interface {
	Open(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)
	DeleteCache(ctx context.Context, name string) (bool, error)
	Match(ctx context.Context, name, key string) (*models.CachedResponse, bool, error)
	Put(ctx context.Context, name, key string, resp *models.CachedResponse) error
}

// Backend is a store that can serve both roles.
type Backend interface {
	KV
	CacheStorage
	Close() error
}
