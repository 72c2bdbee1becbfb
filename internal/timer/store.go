package timer

import (
	"context"
	"sync"
	"time"
)

// Key scopes a countdown to one form, one actor and one device.
type Key struct {
	FormID   string
	ActorID  string
	DeviceID string
}

func (k Key) String() string {
	return "exam-start:" + k.FormID + ":" + k.ActorID + ":" + k.DeviceID
}

// Marker is the persisted state of a countdown: when it started and for how
// long it runs. Remaining time is always derived from it, never stored.
type Marker struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Remaining returns whole seconds left at now. It goes negative after expiry.
func (m Marker) Remaining(now time.Time) int {
	elapsed := int(now.Sub(m.StartedAt) / time.Second)
	return int(m.Duration/time.Second) - elapsed
}

// Store persists countdown markers.
type Store interface {
	// Start stores m under key unless a marker already exists, and returns
	// the marker that is in effect afterwards.
	Start(ctx context.Context, key Key, m Marker) (Marker, error)
	Load(ctx context.Context, key Key) (Marker, bool, error)
	// Release deletes the marker and reports whether this call removed it.
	// At most one concurrent caller observes true.
	Release(ctx context.Context, key Key) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// MemoryStore keeps markers in process memory. Used in development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	markers map[Key]Marker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{markers: make(map[Key]Marker)}
}

func (s *MemoryStore) Start(_ context.Context, key Key, m Marker) (Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.markers[key]; ok {
		return existing, nil
	}
	s.markers[key] = m
	return m, nil
}

func (s *MemoryStore) Load(_ context.Context, key Key) (Marker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[key]
	return m, ok, nil
}

func (s *MemoryStore) Release(_ context.Context, key Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[key]; !ok {
		return false, nil
	}
	delete(s.markers, key)
	return true, nil
}
