package session

import (
	"sync"
	"time"
)

// verdictCache holds the last verdict per kind. Only the coordinator writes to
// it. Every reset starts a new generation; verdicts computed in an older one
// are discarded.
type verdictCache struct {
	mu      sync.RWMutex
	window  time.Duration
	entries map[Kind]Verdict
	gen     uint64
}

func newVerdictCache(window time.Duration) *verdictCache {
	return &verdictCache{window: window, entries: make(map[Kind]Verdict)}
}

// fresh returns the verdict for kind when it is younger than the window.
func (c *verdictCache) fresh(kind Kind, now time.Time) (Verdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[kind]
	if !ok || now.Sub(v.CheckedAt) >= c.window {
		return Verdict{}, false
	}
	return v, true
}

// last returns the stored verdict regardless of age.
func (c *verdictCache) last(kind Kind) (Verdict, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[kind]
	return v, ok
}

func (c *verdictCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// store saves v unless the cache was reset since gen was read.
func (c *verdictCache) store(kind Kind, v Verdict, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.entries[kind] = v
	return true
}

func (c *verdictCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Kind]Verdict)
	c.gen++
}
