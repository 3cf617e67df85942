// Package state holds the mutable runtime state of the service: the
// active device location and the most recently resolved schedule, with
// change notification for components that react to either.
package state

import (
	"sync"

	"minaret/internal/types"
)

// Location is the active position plus how it was obtained. Until a real
// device location arrives, the Kaaba itself serves as the fallback so
// every downstream computation has a defined input.
type Location struct {
	Coordinate    types.Coordinate `json:"coordinate"`
	UsingFallback bool             `json:"using_fallback"`
}

// Snapshot is an immutable copy of the full runtime state.
type Snapshot struct {
	Location Location              `json:"location"`
	Schedule *types.PrayerSchedule `json:"schedule,omitempty"`
}

// Store is the concurrency-safe state container. Subscribers receive a
// snapshot after every mutation; a slow subscriber drops intermediate
// snapshots rather than blocking writers.
type Store struct {
	mu          sync.RWMutex
	location    Location
	schedule    *types.PrayerSchedule
	subscribers map[chan Snapshot]struct{}
}

// NewStore creates a store primed with the fallback location and no
// schedule.
func NewStore() *Store {
	return &Store{
		location: Location{
			Coordinate:    types.MeccaCoordinate,
			UsingFallback: true,
		},
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Location returns the active location.
func (s *Store) Location() Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// SetLocation installs a resolved device location, clearing the fallback
// flag.
func (s *Store) SetLocation(coord types.Coordinate) {
	s.mu.Lock()
	s.location = Location{Coordinate: coord, UsingFallback: false}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
}

// Schedule returns the latest resolved schedule, or nil before the first
// fetch.
func (s *Store) Schedule() *types.PrayerSchedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule
}

// SetSchedule installs a freshly resolved schedule.
func (s *Store) SetSchedule(sched *types.PrayerSchedule) {
	s.mu.Lock()
	s.schedule = sched
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
}

// Snapshot returns a copy of the full state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Location: s.location, Schedule: s.schedule}
}

// Subscribe registers for state change notifications. The returned
// cancel function must be called to release the subscription.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subscribers, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcast delivers a snapshot to every subscriber without blocking.
// A subscriber whose buffer is full has its stale snapshot replaced.
func (s *Store) broadcast(snap Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
