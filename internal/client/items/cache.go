// Package items serves the stored-credential list and its mutations. The
// list is cached, and every successful mutation invalidates it so the next
// read refetches the whole list from the backend.
package items

import (
	"context"
	"strconv"
	"sync"

	"github.com/dmitrijs2005/ciphersafe/internal/client/models"
	"golang.org/x/sync/singleflight"
)

// Lister fetches the full item list.
type Lister interface {
	ListItems(ctx context.Context) ([]models.Item, error)
}

// Cache holds the last fetched list. Concurrent reads of a stale cache
// share one backend call.
type Cache struct {
	api Lister
	sf  singleflight.Group

	mu        sync.RWMutex
	items     []models.Item
	gen       uint64
	loadedGen uint64
	loaded    bool
}

func NewCache(api Lister) *Cache {
	return &Cache{api: api}
}

// List returns the cached list, fetching it first if it was invalidated.
func (c *Cache) List(ctx context.Context) ([]models.Item, error) {
	c.mu.RLock()
	if c.loaded && c.loadedGen == c.gen {
		out := append([]models.Item(nil), c.items...)
		c.mu.RUnlock()
		return out, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	v, err, _ := c.sf.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		items, err := c.api.ListItems(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.items = items
			c.loadedGen = gen
			c.loaded = true
		}
		c.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]models.Item(nil), v.([]models.Item)...), nil
}

// Invalidate marks the list stale. Results of fetches already in flight
// are still returned to their callers but not cached.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.loaded = false
}

// Clear drops the cached list, e.g. on logout.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.loaded = false
	c.items = nil
}
