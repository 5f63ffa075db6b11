package position

import (
	"context"
	"net/url"
	"sync"
)

// Key identifies one (learner, course) resume slot.
type Key struct {
	LearnerID string
	CourseID  string
}

// String is the storage key, e.g. "course_progress:u1:c9". Both parts are
// query-escaped so a ':' inside an id cannot shift the separator.
func (k Key) String() string {
	return "course_progress:" + url.QueryEscape(k.LearnerID) + ":" + url.QueryEscape(k.CourseID)
}

// Store persists the last active content item per Key. Get reports ok=false
// when nothing is saved.
type Store interface {
	Get(ctx context.Context, key Key) (itemID string, ok bool, err error)
	Put(ctx context.Context, key Key, itemID string) error
}

type MemoryStore struct {
	mu sync.RWMutex
	m  map[Key]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: map[Key]string{}}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key Key, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = itemID
	return nil
}
