// Package store is the process-wide lobby registry. Unlike lobbyactor
// (one goroutine per lobby, channel-owned state) the registry itself is
// read far more often than it is written — lookups happen on every inbound
// frame — so it is guarded by a plain sync.RWMutex instead of being an
// actor of its own, a deliberate split from a pure all-actor registry
// design.
package store

import (
	"sync"

	"github.com/veto-ceremony/server/internal/lobbyactor"
)

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "store: lobby not found" }

// Store holds every live lobbyactor.Actor plus the handful of cross-lobby
// admin selections (which lobby, if any, is wired to the OBS overlay feed).
type Store struct {
	mu      sync.RWMutex
	lobbies map[string]*lobbyactor.Actor
	obsID   string
}

func New() *Store {
	return &Store{lobbies: make(map[string]*lobbyactor.Actor)}
}

// Put registers a freshly-created actor. Callers are responsible for id
// collisions (internal/admin generates collision-checked IDs before
// calling Put).
func (s *Store) Put(a *lobbyactor.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[a.ID()] = a
}

func (s *Store) Get(id string) (*lobbyactor.Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.lobbies[id]
	return a, ok
}

// Delete removes id from the registry. It does not shut the actor down —
// callers (internal/admin, internal/reaper) send lobbyactor.ShutdownMsg
// themselves so the actor's own goroutine tears itself down cleanly.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.obsID == id {
		s.obsID = ""
	}
	delete(s.lobbies, id)
}

// List returns a snapshot of every live actor, for the reaper's sweep and
// the admin /api/lobbies query.
func (s *Store) List() []*lobbyactor.Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*lobbyactor.Actor, 0, len(s.lobbies))
	for _, a := range s.lobbies {
		out = append(out, a)
	}
	return out
}

// SetObsLobby wires id as the lobby whose events feed the OBS overlay room.
// Passing "" clears it.
func (s *Store) SetObsLobby(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obsID = id
}

func (s *Store) ObsLobby() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obsID
}
