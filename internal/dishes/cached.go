package dishes

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// BlobCache stores opaque values with an expiry.
type BlobCache interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IngredientSource lists every known ingredient.
type IngredientSource interface {
	Ingredients(ctx context.Context) ([]string, error)
}

const ingredientsCacheKey = "dishes:ingredients"

// CachedIngredients serves the ingredient list from a BlobCache while it is
// fresh. Cache failures are logged and fall through to the service.
type CachedIngredients struct {
	next   IngredientSource
	cache  BlobCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedIngredients wraps next. A nil logger uses slog.Default.
func NewCachedIngredients(next IngredientSource, cache BlobCache, ttl time.Duration, logger *slog.Logger) *CachedIngredients {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedIngredients{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Ingredients implements IngredientSource.
func (c *CachedIngredients) Ingredients(ctx context.Context) ([]string, error) {
	if data, ok, err := c.cache.Load(ctx, ingredientsCacheKey); err != nil {
		c.logger.Warn("ingredient cache read failed", "error", err)
	} else if ok {
		var items []string
		if err := json.Unmarshal(data, &items); err == nil {
			return items, nil
		}
		c.logger.Warn("ingredient cache entry corrupt, refetching")
	}

	items, err := c.next.Ingredients(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(items); err == nil {
		if err := c.cache.Store(ctx, ingredientsCacheKey, data, c.ttl); err != nil {
			c.logger.Warn("ingredient cache write failed", "error", err)
		}
	}
	return items, nil
}
