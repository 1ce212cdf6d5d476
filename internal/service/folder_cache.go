package service

import (
	"context"

	"github.com/cloo-solutions/curioai/internal/config"
	"github.com/cloo-solutions/curioai/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const folderListKey = "\x00list"

// FolderCache caches folder snapshots (centroid, exemplars, member count)
// for scoring. Entries are invalidated on every membership mutation -- a
// stale centroid must never outlive the mutation that changed it -- and
// expire on TTL as a backstop.
type FolderCache struct {
	folders FolderRepositoryInterface
	cache   *expirable.LRU[string, []*domain.Folder]
}

// NewFolderCache creates a new FolderCache instance
func NewFolderCache(folders FolderRepositoryInterface, cfg config.CacheConfig) *FolderCache {
	return &FolderCache{
		folders: folders,
		cache:   expirable.NewLRU[string, []*domain.Folder](cfg.FolderCacheSize, nil, cfg.FolderCacheTTL),
	}
}

// List returns all folder snapshots, served from cache when fresh.
func (c *FolderCache) List(ctx context.Context) ([]*domain.Folder, error) {
	if cached, ok := c.cache.Get(folderListKey); ok {
		return cached, nil
	}

	folders, err := c.folders.List(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(folderListKey, folders)
	return folders, nil
}

// Get returns one folder snapshot, bypassing the list cache.
func (c *FolderCache) Get(ctx context.Context, path string) (*domain.Folder, error) {
	if cached, ok := c.cache.Get(path); ok && len(cached) == 1 {
		return cached[0], nil
	}

	folder, err := c.folders.GetByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	c.cache.Add(path, []*domain.Folder{folder})
	return folder, nil
}

// Invalidate drops the cached snapshot for a folder path along with the
// folder list. Must be called after every membership mutation.
func (c *FolderCache) Invalidate(path string) {
	c.cache.Remove(path)
	c.cache.Remove(folderListKey)
}
