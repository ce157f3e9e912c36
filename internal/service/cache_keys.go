package service

import (
	"context"

	"github.com/google/uuid"

	"blogserver/internal/cache"
)

const authorsCacheKey = "authors"

func userCacheKey(id uuid.UUID) string {
	return "user:" + id.String()
}

func postCacheKey(id uuid.UUID) string {
	return "post:" + id.String()
}

// invalidateUser drops the cached profile and author list, both of which
// show avatar, name and post count.
func invalidateUser(ctx context.Context, c *cache.Client, id uuid.UUID) {
	_ = c.Delete(ctx, userCacheKey(id), authorsCacheKey)
}
