package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"maljrs-backend/models"
)

const defaultCacheTTL = time.Hour

// ResultCache is an in-memory TTL cache for analysis reports. Identical
// record and option combinations within the TTL window reuse the stored
// report instead of re-running the pipeline.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration

	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	report    *models.Report
	expiresAt time.Time
}

// CacheStats is a snapshot of cache effectiveness counters
type CacheStats struct {
	Entries   int     `json:"entries"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// NewResultCache creates a cache with the given TTL. A non-positive TTL
// falls back to one hour.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ResultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// scopeAdHoc prefixes keys for inline records that belong to no stored case.
const scopeAdHoc = "adhoc"

// CacheKey derives a stable key from a case scope, the record and the
// requested options. The record is fingerprinted via its JSON form, so any
// change to the record produces a different key. The scope (normally the
// case ID) becomes the key prefix so all entries for one case can be dropped
// together with InvalidatePrefix.
func CacheKey(scope string, record *models.CaseRecord, options []string) string {
	if scope == "" {
		scope = scopeAdHoc
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		encoded = nil
	}
	h := sha256.New()
	h.Write(encoded)
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(options, "|")))
	return scope + ":" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached report for key, if present and not expired.
func (c *ResultCache) Get(key string) (*models.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.report, true
}

// Set stores a report under key with the cache TTL.
func (c *ResultCache) Set(key string, report *models.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		report:    report,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Invalidate removes a single entry.
func (c *ResultCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns how many were removed. Passing a case ID followed by ":" drops all
// cached reports for that case.
func (c *ResultCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Stats returns a snapshot of the cache counters.
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// CleanupExpired removes expired entries and returns how many were evicted.
func (c *ResultCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.evictions += int64(removed)
	return removed
}

// StartCleanup sweeps expired entries in the background at the given
// interval until ctx is cancelled. A non-positive interval sweeps once per
// TTL window.
func (c *ResultCache) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.CleanupExpired(); removed > 0 {
					log.Printf("Cache cleanup removed %d expired entries", removed)
				}
			}
		}
	}()
}
