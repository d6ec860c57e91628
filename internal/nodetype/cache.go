package nodetype

import (
	"sync"

	"github.com/damz/jackalope/internal/ir"
)

// cacheEntry is a memoized lookup. found=false records a known miss, which
// is distinct from the name being absent from the cache.
type cacheEntry struct {
	def   ir.NodeTypeDefinition
	found bool
}

type typeCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newTypeCache() *typeCache {
	return &typeCache{entries: make(map[string]cacheEntry)}
}

func (c *typeCache) get(name string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

func (c *typeCache) put(name string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = e
}
