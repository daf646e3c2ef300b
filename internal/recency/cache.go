// Package recency remembers the last joke delivered to each chat so the next
// pick can avoid an immediate repeat. The cache is a best-effort hint: it
// lives in process memory, is lost on restart, and is updated before a send
// is confirmed.
package recency

import "sync"

type Cache struct {
	mu   sync.RWMutex
	last map[int64]int64
}

func NewCache() *Cache {
	return &Cache{last: make(map[int64]int64)}
}

// Last returns the public id of the joke last delivered to chatID.
func (c *Cache) Last(chatID int64) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.last[chatID]
	return id, ok
}

func (c *Cache) Remember(chatID, jokeID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[chatID] = jokeID
}

func (c *Cache) Forget(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.last, chatID)
}
