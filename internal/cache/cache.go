// Package cache holds the authoritative in-memory copy of every active
// squad. Reads take the map-level read lock only; mutations of one squad are
// serialized on that squad's entry lock so check-then-act sequences (balance
// checks, capacity checks) stay atomic per squad.
package cache

import (
	"sync"

	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
	"github.com/ravenhold/squadcore/internal/storage"
)

// State is the cached representation of one active squad.
type State struct {
	Squad   squad.Squad
	Members map[string]member.Member // keyed by player ID
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	members := make(map[string]member.Member, len(s.Members))
	for id, m := range s.Members {
		members[id] = m
	}
	return State{Squad: s.Squad, Members: members}
}

type entry struct {
	mu    sync.Mutex
	state State
}

// Cache is a concurrent map of squad ID to cached squad state.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Put inserts or replaces the cached state for a squad.
func (c *Cache) Put(state State) {
	if state.Members == nil {
		state.Members = make(map[string]member.Member)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[state.Squad.ID] = &entry{state: state.Clone()}
}

// Remove evicts a squad, typically on disband.
func (c *Cache) Remove(squadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, squadID)
}

// Len returns the number of cached squads.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(squadID string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[squadID]
	return e, ok
}

// Squad returns a copy of the cached squad record.
func (c *Cache) Squad(squadID string) (squad.Squad, bool) {
	e, ok := c.lookup(squadID)
	if !ok {
		return squad.Squad{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Squad, true
}

// Member returns a copy of one cached membership.
func (c *Cache) Member(squadID, playerID string) (member.Member, bool) {
	e, ok := c.lookup(squadID)
	if !ok {
		return member.Member{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.state.Members[playerID]
	return m, ok
}

// Members returns copies of all cached memberships for a squad.
func (c *Cache) Members(squadID string) ([]member.Member, bool) {
	e, ok := c.lookup(squadID)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]member.Member, 0, len(e.state.Members))
	for _, m := range e.state.Members {
		result = append(result, m)
	}
	return result, true
}

// ListSquads returns a copy of every cached squad record.
func (c *Cache) ListSquads() []squad.Squad {
	c.mu.RLock()
	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	result := make([]squad.Squad, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		result = append(result, e.state.Squad)
		e.mu.Unlock()
	}
	return result
}

// Update runs fn against a deep copy of the squad's state under the entry
// lock. The copy replaces the cached state only when fn returns nil, so a
// failed store write inside fn leaves the cache untouched. Returns
// storage.ErrNotFound when the squad is not cached.
func (c *Cache) Update(squadID string, fn func(state *State) error) error {
	e, ok := c.lookup(squadID)
	if !ok {
		return storage.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.state.Clone()
	if err := fn(&working); err != nil {
		return err
	}
	e.state = working
	return nil
}
