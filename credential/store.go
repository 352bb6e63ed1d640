package credential

import (
	"sync"
	"time"

	"github.com/samber/mo"
)

// Store is the process-wide cell holding the current bundle.
// Every method takes the same lock, so a read-modify-write never interleaves.
type Store struct {
	mu            sync.Mutex
	bundle        mo.Option[Bundle]
	failures      int
	generation    uint64
	cooldownUntil time.Time
	now           func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Get returns a copy of the current bundle.
func (s *Store) Get() mo.Option[Bundle] {
	b, _ := s.Snapshot()
	return b
}

// Snapshot returns a copy of the current bundle and the generation it belongs to.
// The generation increases on every Set.
func (s *Store) Snapshot() (mo.Option[Bundle], uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bundle.Get()
	if !ok {
		return mo.None[Bundle](), s.generation
	}

	b = b.clone()
	b.FailureCount = s.failures
	return mo.Some(b), s.generation
}

// Generation returns the current generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Set replaces the bundle and clears any cooldown. The failure counter is
// kept: a fresh bundle is not proof that extraction works again, only
// RecordSuccess or an expired cooldown clears it.
func (s *Store) Set(b Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bundle = mo.Some(b.clone())
	s.generation++
	s.cooldownUntil = time.Time{}
}

// RecordFailure increments the consecutive failure counter and returns its new value.
func (s *Store) RecordFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	return s.failures
}

// RecordSuccess resets the consecutive failure counter.
func (s *Store) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = 0
}

// StartCooldown suppresses refreshes for d.
func (s *Store) StartCooldown(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cooldownUntil = s.now().Add(d)
}

// CoolingDown reports whether a cooldown is active. An expired cooldown
// resets the failure counter.
func (s *Store) CoolingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cooldownUntil.IsZero() {
		return false
	}

	if s.now().Before(s.cooldownUntil) {
		return true
	}

	s.cooldownUntil = time.Time{}
	s.failures = 0
	return false
}
