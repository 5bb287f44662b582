package adapter

import (
	"container/list"
	"sync"
	"time"

	"telelingo/internal/capability"
)

// SessionKey identifies a translation session by its language pair.
type SessionKey struct {
	Source string
	Target string
}

func (k SessionKey) String() string {
	return k.Source + "->" + k.Target
}

// SessionCache keeps the most recently used translation sessions, keyed by
// language pair. With idleTTL > 0, sessions unused for longer are dropped.
type SessionCache struct {
	mu         sync.Mutex
	entries    map[SessionKey]*list.Element
	order      *list.List
	maxEntries int
	idleTTL    time.Duration
}

type sessionCacheEntry struct {
	key      SessionKey
	session  capability.Translator
	lastUsed time.Time
}

// NewSessionCache creates a cache holding at most maxEntries sessions
// (at least one).
func NewSessionCache(maxEntries int, idleTTL time.Duration) *SessionCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}

	return &SessionCache{
		entries:    make(map[SessionKey]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
		idleTTL:    idleTTL,
	}
}

func (c *SessionCache) Get(key SessionKey, now time.Time) (capability.Translator, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry, ok := elem.Value.(*sessionCacheEntry)
	if !ok {
		return nil, false
	}

	if c.idleLocked(entry, now) {
		c.removeElement(elem)

		return nil, false
	}

	entry.lastUsed = now
	c.order.MoveToFront(elem)

	return entry.session, true
}

func (c *SessionCache) Put(key SessionKey, session capability.Translator, now time.Time) {
	if session == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry, castOk := elem.Value.(*sessionCacheEntry)
		if !castOk {
			return
		}

		entry.session = session
		entry.lastUsed = now
		c.order.MoveToFront(elem)

		return
	}

	elem := c.order.PushFront(&sessionCacheEntry{
		key:      key,
		session:  session,
		lastUsed: now,
	})
	c.entries[key] = elem

	c.enforceSizeLimitLocked()
}

// EvictIdle drops sessions idle for longer than the TTL and returns how many
// were dropped.
func (c *SessionCache) EvictIdle(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()

		if entry, ok := elem.Value.(*sessionCacheEntry); ok && c.idleLocked(entry, now) {
			c.removeElement(elem)
			evicted++
		}

		elem = prev
	}

	return evicted
}

func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Keys returns the cached pairs, most recently used first.
func (c *SessionCache) Keys() []SessionKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]SessionKey, 0, len(c.entries))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if entry, ok := elem.Value.(*sessionCacheEntry); ok {
			keys = append(keys, entry.key)
		}
	}

	return keys
}

func (c *SessionCache) idleLocked(entry *sessionCacheEntry, now time.Time) bool {
	return c.idleTTL > 0 && now.Sub(entry.lastUsed) > c.idleTTL
}

func (c *SessionCache) enforceSizeLimitLocked() {
	for len(c.entries) > c.maxEntries {
		elem := c.order.Back()
		if elem == nil {
			return
		}
		c.removeElement(elem)
	}
}

func (c *SessionCache) removeElement(elem *list.Element) {
	entry, ok := elem.Value.(*sessionCacheEntry)
	if !ok {
		return
	}

	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
