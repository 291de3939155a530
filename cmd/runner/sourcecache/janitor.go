package sourcecache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/genomeai/platform/common/telemetry"
)

// Evict removes slots whose last use is older than maxAge. Slots that are
// leased or being refreshed are skipped. Returns the number removed.
func (c *Cache) Evict(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}

	cutoff := c.now().Add(-maxAge)
	removed := 0

	names, err := os.ReadDir(c.root)
	if err != nil {
		c.log.Warn("failed to list cache root", "root", c.root, "error", err)
		return 0
	}

	for _, name := range names {
		if !name.IsDir() || strings.HasPrefix(name.Name(), ".") {
			continue
		}

		revs, err := os.ReadDir(filepath.Join(c.root, name.Name()))
		if err != nil {
			continue
		}

		for _, rev := range revs {
			if !rev.IsDir() {
				continue
			}
			key := Key{Name: name.Name(), Revision: rev.Name()}
			if c.evictSlot(key, cutoff) {
				removed++
			}
		}
	}

	return removed
}

func (c *Cache) evictSlot(key Key, cutoff time.Time) bool {
	dir := c.Dir(key)

	info, err := os.Stat(dir)
	if err != nil || !info.ModTime().Before(cutoff) {
		return false
	}

	if !c.locks.tryLock(key.String()) {
		c.log.Debug("skipping busy cache slot", "cache_key", key.String())
		return false
	}
	defer c.locks.unlock(key.String())

	if err := os.RemoveAll(dir); err != nil {
		c.log.Warn("failed to evict cache slot", "cache_key", key.String(), "error", err)
		telemetry.SourceCacheOps.WithLabelValues("evict", "error").Inc()
		return false
	}

	c.log.Info("evicted cache slot", "cache_key", key.String(), "last_used", info.ModTime())
	telemetry.SourceCacheOps.WithLabelValues("evict", "ok").Inc()
	return true
}

// RunJanitor evicts idle slots every interval until ctx is done.
// A non-positive maxAge disables eviction.
func (c *Cache) RunJanitor(ctx context.Context, interval, maxAge time.Duration) error {
	if maxAge <= 0 || interval <= 0 {
		c.log.Info("source cache eviction disabled")
		return nil
	}

	c.log.Info("source cache janitor starting", "interval", interval, "max_age", maxAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("source cache janitor shutting down")
			return nil
		case <-ticker.C:
			if n := c.Evict(maxAge); n > 0 {
				c.log.Info("source cache sweep complete", "evicted", n)
			}
		}
	}
}
