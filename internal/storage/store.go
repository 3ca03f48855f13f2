// Package storage provides SQLite-based persistent storage for dishdex.
// It holds the credential documents and the dish service response cache.
package storage

import (
	"context"
)

// Store defines the interface for all storage operations.
type Store interface {
	// Key/value documents
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error

	// Response cache
	GetCached(ctx context.Context, key string) (*CacheEntry, error)
	SetCached(ctx context.Context, entry *CacheEntry) error
	PruneExpiredCache(ctx context.Context) (int64, error)
	GetCacheStats(ctx context.Context) (*CacheStats, error)

	// Lifecycle
	Close() error
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// CacheEntry represents a cached service response.
type CacheEntry struct {
	CacheKey        string
	ResponseJSON    string
	Source          string
	CreatedAtUnixMs int64
	ExpiresAtUnixMs int64
	HitCount        int64
}
