package radikoapi

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultCacheTTL is the freshness window for guide documents.
const DefaultCacheTTL = time.Hour

// Cache is a per-(station,date) disk cache of raw program-guide
// documents, laid out as {stationID}_{date}.xml under Dir. Entries are
// keyed per (station, date), so concurrent writers target disjoint
// files; a same-key write race is last-writer-wins.
type Cache struct {
	Dir string
	TTL time.Duration
}

// NewCache returns a cache rooted at dir with the default freshness
// window. An empty dir disables caching.
func NewCache(dir string) *Cache {
	return &Cache{Dir: dir, TTL: DefaultCacheTTL}
}

func (c *Cache) path(stationID, date string) string {
	return filepath.Join(c.Dir, stationID+"_"+date+".xml")
}

// Load returns the cached document and whether it is within the
// freshness window. A stale body is still returned (fresh=false) so
// callers can fall back to it when a fetch fails. Read or stat
// failures are a miss, never an error.
func (c *Cache) Load(stationID, date string) (body []byte, fresh bool) {
	if c == nil || c.Dir == "" {
		return nil, false
	}
	p := c.path(stationID, date)
	fi, err := os.Stat(p)
	if err != nil {
		return nil, false
	}
	body, err = os.ReadFile(p)
	if err != nil {
		return nil, false
	}
	ttl := c.TTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return body, time.Since(fi.ModTime()) < ttl
}

// Store writes the document for (stationID, date), overwriting any
// previous entry. Callers treat failures as log-only.
func (c *Cache) Store(stationID, date string, body []byte) error {
	if c == nil || c.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path(stationID, date), body, 0o644)
}
