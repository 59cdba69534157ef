package session

import (
	"context"
	"sync"
	"time"
)

// defaultSweepInterval bounds how long an expired session lingers in memory.
const defaultSweepInterval = 5 * time.Minute

// MemoryStore keeps sessions in process memory and sweeps expired ones in
// the background.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a store whose sessions expire after ttl of
// inactivity. A non-positive ttl means DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return newMemoryStore(ttl, time.Now, defaultSweepInterval)
}

func newMemoryStore(ttl time.Duration, now func() time.Time, sweepEvery time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepEvery > ttl {
		sweepEvery = ttl
	}

	m := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.sweepLoop(sweepEvery)
	return m
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := prepare(s, m.now()); err != nil {
		return err
	}
	m.sessions[s.ID] = s.clone()
	SessionsActive.Set(float64(len(m.sessions)))
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	now := m.now()
	if !ok || s.IsExpired(m.ttl, now) {
		if ok {
			delete(m.sessions, id)
			SessionsActive.Set(float64(len(m.sessions)))
		}
		SessionLookups.WithLabelValues("memory", "miss").Inc()
		return nil, ErrSessionNotFound
	}

	s.LastAccess = now
	SessionLookups.WithLabelValues("memory", "hit").Inc()
	return s.clone(), nil
}

// Update implements Store.
func (m *MemoryStore) Update(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[s.ID]
	now := m.now()
	if !ok || current.IsExpired(m.ttl, now) {
		return ErrSessionNotFound
	}

	s.CreatedAt = current.CreatedAt
	s.LastAccess = now
	m.sessions[s.ID] = s.clone()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	SessionsActive.Set(float64(len(m.sessions)))
	return nil
}

// Len returns the number of stored sessions, including expired ones not yet
// swept.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if s.IsExpired(m.ttl, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	SessionsActive.Set(float64(len(m.sessions)))
	return removed
}

// Close stops the background sweep. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
	return nil
}

func (m *MemoryStore) sweepLoop(every time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
