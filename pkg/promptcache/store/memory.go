package store

import (
	"context"
	"sync"
	"time"

	"github.com/flowmatic/promptcache-go/pkg/promptcache"
)

// MemoryConfig contains configuration for the in-memory store.
type MemoryConfig struct {
	// MaxEntries caps the number of conversations tracked; when exceeded,
	// the least recently used entry is evicted. Zero means DefaultMaxEntries.
	MaxEntries int

	// TTL expires entries that have not been touched within this window.
	// Zero means DefaultTTL.
	TTL time.Duration
}

const (
	// DefaultMaxEntries bounds the in-memory store when unconfigured.
	DefaultMaxEntries = 1024

	// DefaultTTL expires abandoned conversations after an hour.
	DefaultTTL = time.Hour
)

type memoryEntry struct {
	placements []promptcache.CachePointPlacement
	touchedAt  time.Time
}

// MemoryStore is a goroutine-safe, bounded in-memory PlacementStore.
// Unlike an unbounded process-wide map, abandoned conversations age out
// via TTL and the entry count is capped with LRU eviction.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(config MemoryConfig) *MemoryStore {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultMaxEntries
	}
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	return &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: config.MaxEntries,
		ttl:        config.TTL,
		now:        time.Now,
	}
}

// Get returns the placements for a conversation, refreshing its TTL.
func (s *MemoryStore) Get(ctx context.Context, conversationID string) ([]promptcache.CachePointPlacement, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[conversationID]
	if !ok {
		return nil, false, nil
	}
	if s.now().Sub(entry.touchedAt) > s.ttl {
		delete(s.entries, conversationID)
		return nil, false, nil
	}
	entry.touchedAt = s.now()

	placements := make([]promptcache.CachePointPlacement, len(entry.placements))
	copy(placements, entry.placements)
	return placements, true, nil
}

// Put records the placements for a conversation.
func (s *MemoryStore) Put(ctx context.Context, conversationID string, placements []promptcache.CachePointPlacement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]promptcache.CachePointPlacement, len(placements))
	copy(stored, placements)

	if _, ok := s.entries[conversationID]; !ok && len(s.entries) >= s.maxEntries {
		s.evictLocked()
	}
	s.entries[conversationID] = &memoryEntry{placements: stored, touchedAt: s.now()}
	return nil
}

// Delete removes a conversation's placements.
func (s *MemoryStore) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, conversationID)
	return nil
}

// Name returns the backend name.
func (s *MemoryStore) Name() string {
	return "memory"
}

// evictLocked drops expired entries, then the least recently touched entry
// if the store is still full. Caller holds the lock.
func (s *MemoryStore) evictLocked() {
	now := s.now()
	for id, entry := range s.entries {
		if now.Sub(entry.touchedAt) > s.ttl {
			delete(s.entries, id)
		}
	}
	if len(s.entries) < s.maxEntries {
		return
	}

	oldestID := ""
	var oldest time.Time
	for id, entry := range s.entries {
		if oldestID == "" || entry.touchedAt.Before(oldest) {
			oldestID = id
			oldest = entry.touchedAt
		}
	}
	if oldestID != "" {
		delete(s.entries, oldestID)
	}
}
