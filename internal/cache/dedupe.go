// Package cache provides a time-limited deduplication cache used to absorb
// accidental double-submission of the same chat message.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync"
	"time"
)

// DedupeCache provides time-limited deduplication.
type DedupeCache struct {
	mu      sync.Mutex
	entries map[string]int64 // key -> unix millis last seen
	ttl     time.Duration
	maxSize int
}

// NewDedupeCache creates a cache in which keys expire after ttl and at most
// maxSize keys are retained (oldest evicted first).
func NewDedupeCache(ttl time.Duration, maxSize int) *DedupeCache {
	if ttl < 0 {
		ttl = 0
	}
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &DedupeCache{
		entries: make(map[string]int64),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Check reports whether the key was seen within the TTL, and records it.
func (c *DedupeCache) Check(key string) bool {
	return c.CheckAt(key, time.Now())
}

// CheckAt checks for a duplicate with an explicit timestamp (for testing).
func (c *DedupeCache) CheckAt(key string, now time.Time) bool {
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nowMs := now.UnixMilli()
	if seen, ok := c.entries[key]; ok {
		if c.ttl <= 0 || nowMs-seen < c.ttl.Milliseconds() {
			c.entries[key] = nowMs
			return true
		}
	}

	c.entries[key] = nowMs
	c.prune(nowMs)
	return false
}

// Forget drops a key so the same message is accepted again immediately. Used
// when a turn fails after its key was recorded: a failed turn must stay
// retryable.
func (c *DedupeCache) Forget(key string) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Size returns the current number of entries.
func (c *DedupeCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *DedupeCache) prune(nowMs int64) {
	if c.ttl > 0 {
		cutoff := nowMs - c.ttl.Milliseconds()
		for key, seen := range c.entries {
			if seen < cutoff {
				delete(c.entries, key)
			}
		}
	}

	for len(c.entries) > c.maxSize {
		var oldestKey string
		oldest := int64(math.MaxInt64)
		for k, seen := range c.entries {
			if seen < oldest {
				oldest = seen
				oldestKey = k
			}
		}
		if oldestKey == "" {
			return
		}
		delete(c.entries, oldestKey)
	}
}

// MessageDedupeKey builds a dedupe key for a chat message. The digest keeps
// message content out of the cache keys.
func MessageDedupeKey(ownerID, conversationID, message string) string {
	if message == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ownerID + "\x00" + conversationID + "\x00" + message))
	return hex.EncodeToString(sum[:16])
}
