// Package templatecache keeps the last known branding template per tenant
// in a dgraph-io/ristretto in-process cache, so the challan form can still
// render a document preview when the design endpoint is unreachable.
package templatecache

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/automan-solutions/challandesk/internal/domain/branding"
)

// Cache holds branding templates keyed by tenant ID.
type Cache struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// New creates the cache. maxCostBytes bounds the total size of cached
// templates in bytes.
func New(maxCostBytes int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

// Put stores the tenant's template, replacing any older copy.
func (c *Cache) Put(tenantID string, tpl branding.Template) {
	encoded, err := json.Marshal(tpl)
	if err != nil {
		return
	}
	c.c.SetWithTTL(tenantID, encoded, int64(len(encoded)), c.ttl)
	c.c.Wait()
}

// Get returns the tenant's cached template, if any.
func (c *Cache) Get(tenantID string) (branding.Template, bool) {
	encoded, found := c.c.Get(tenantID)
	if !found {
		return branding.Template{}, false
	}
	var tpl branding.Template
	if err := json.Unmarshal(encoded, &tpl); err != nil {
		c.c.Del(tenantID)
		return branding.Template{}, false
	}
	return tpl, true
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.c.Close()
}
