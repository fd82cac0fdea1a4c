package widget

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	snap    *Snapshot
	expires time.Time
}

// Service serves snapshots from a per-user cache so widget polling does not
// hit storage on every refresh. Entries live for the widget refresh
// interval; a janitor purges the stale ones.
type Service struct {
	builder *Builder
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[int64]cacheEntry
	stop    chan struct{}

	now func() time.Time
}

func NewService(builder *Builder, ttl time.Duration) *Service {
	s := &Service{
		builder: builder,
		ttl:     ttl,
		entries: make(map[int64]cacheEntry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go s.janitor()
	return s
}

// Get returns the cached snapshot, building a fresh one when missing or
// stale.
func (s *Service) Get(ctx context.Context, userID int64) (*Snapshot, error) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	s.mu.RUnlock()
	if ok && s.now().Before(entry.expires) {
		return entry.snap, nil
	}

	snap, err := s.builder.Build(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[userID] = cacheEntry{snap: snap, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return snap, nil
}

// Invalidate drops the user's cached snapshot so the next Get rebuilds it.
// Called after writes the widget reflects, like a habit toggle.
func (s *Service) Invalidate(userID int64) {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
}

func (s *Service) evictStale() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, id)
		}
	}
}

func (s *Service) janitor() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictStale()
		case <-s.stop:
			return
		}
	}
}

// Close stops the janitor
func (s *Service) Close() {
	close(s.stop)
}
