// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ravenhold/squadcore/internal/domain/audit"
	"github.com/ravenhold/squadcore/internal/domain/ledger"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
	"github.com/ravenhold/squadcore/internal/storage"
)

// Store holds every entity kind in guarded maps.
type Store struct {
	mu           sync.RWMutex
	squads       map[string]squad.Squad
	members      map[string]member.Member // keyed squadID|playerID
	transactions map[string][]ledger.Transaction
	events       map[string][]audit.Event
}

var _ storage.SquadStore = (*Store)(nil)
var _ storage.MemberStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)
var _ storage.AuditStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		squads:       make(map[string]squad.Squad),
		members:      make(map[string]member.Member),
		transactions: make(map[string][]ledger.Transaction),
		events:       make(map[string][]audit.Event),
	}
}

func memberKey(squadID, playerID string) string {
	return fmt.Sprintf("%s|%s", squadID, playerID)
}

// SquadStore implementation ---------------------------------------------------

func (s *Store) CreateSquad(_ context.Context, sq squad.Squad) (squad.Squad, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sq.ID == "" {
		sq.ID = uuid.NewString()
	} else if _, exists := s.squads[sq.ID]; exists {
		return squad.Squad{}, fmt.Errorf("squad %s already exists", sq.ID)
	}
	if sq.CreatedAt.IsZero() {
		sq.CreatedAt = time.Now().UTC()
	}
	s.squads[sq.ID] = sq
	return sq, nil
}

func (s *Store) GetSquad(_ context.Context, id string) (squad.Squad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sq, ok := s.squads[id]
	if !ok {
		return squad.Squad{}, storage.ErrNotFound
	}
	return sq, nil
}

func (s *Store) UpdateSquadLevelAndTreasury(_ context.Context, id string, level, maxMembers int, treasury squad.Treasury) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sq, ok := s.squads[id]
	if !ok {
		return storage.ErrNotFound
	}
	if sq.DisbandedAt != nil {
		return nil
	}
	sq.Level = level
	sq.MaxMembers = maxMembers
	sq.Treasury = treasury
	s.squads[id] = sq
	return nil
}

func (s *Store) UpdateSquadCaptain(_ context.Context, id, captainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sq, ok := s.squads[id]
	if !ok {
		return storage.ErrNotFound
	}
	sq.CaptainID = captainID
	s.squads[id] = sq
	return nil
}

func (s *Store) MarkDisbanded(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sq, ok := s.squads[id]
	if !ok {
		return storage.ErrNotFound
	}
	if sq.DisbandedAt == nil {
		t := at.UTC()
		sq.DisbandedAt = &t
		s.squads[id] = sq
	}
	return nil
}

func (s *Store) ListActiveSquads(_ context.Context) ([]squad.Squad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []squad.Squad
	for _, sq := range s.squads {
		if sq.DisbandedAt == nil {
			result = append(result, sq)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// MemberStore implementation --------------------------------------------------

func (s *Store) CreateMember(_ context.Context, m member.Member) (member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey(m.SquadID, m.PlayerID)
	if _, exists := s.members[key]; exists {
		return member.Member{}, fmt.Errorf("player %s is already a member of squad %s", m.PlayerID, m.SquadID)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	s.members[key] = m
	return m, nil
}

func (s *Store) GetMember(_ context.Context, squadID, playerID string) (member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberKey(squadID, playerID)]
	if !ok {
		return member.Member{}, storage.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListMembers(_ context.Context, squadID string) ([]member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []member.Member
	for _, m := range s.members {
		if m.SquadID == squadID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].JoinedAt.Before(result[j].JoinedAt) })
	return result, nil
}

func (s *Store) ListMembershipsByPlayer(_ context.Context, playerID string) ([]member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []member.Member
	for _, m := range s.members {
		if m.PlayerID == playerID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].JoinedAt.Before(result[j].JoinedAt) })
	return result, nil
}

func (s *Store) UpdateMemberRole(_ context.Context, squadID, playerID string, role member.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey(squadID, playerID)
	m, ok := s.members[key]
	if !ok {
		return storage.ErrNotFound
	}
	m.Role = role
	s.members[key] = m
	return nil
}

func (s *Store) UpdateMemberContributions(_ context.Context, squadID, playerID string, coins, xp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey(squadID, playerID)
	m, ok := s.members[key]
	if !ok {
		return storage.ErrNotFound
	}
	m.ContributionCoins = coins
	m.ContributionXP = xp
	s.members[key] = m
	return nil
}

func (s *Store) DeleteMember(_ context.Context, squadID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey(squadID, playerID)
	if _, ok := s.members[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.members, key)
	return nil
}

// LedgerStore implementation --------------------------------------------------

func (s *Store) AppendTransaction(_ context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	s.transactions[tx.SquadID] = append(s.transactions[tx.SquadID], tx)
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, squadID string, limit int) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.transactions[squadID]
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	result := make([]ledger.Transaction, len(rows))
	copy(result, rows)
	return result, nil
}

// AuditStore implementation ---------------------------------------------------

func (s *Store) AppendEvent(_ context.Context, ev audit.Event) (audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	s.events[ev.SquadID] = append(s.events[ev.SquadID], ev)
	return ev, nil
}

func (s *Store) ListEvents(_ context.Context, squadID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.events[squadID]
	result := make([]audit.Event, len(rows))
	copy(result, rows)
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}
