// Package storage declares the persistence interfaces for the squad
// subsystem. Implementations live in the memory and postgres subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ravenhold/squadcore/internal/domain/audit"
	"github.com/ravenhold/squadcore/internal/domain/ledger"
	"github.com/ravenhold/squadcore/internal/domain/member"
	"github.com/ravenhold/squadcore/internal/domain/squad"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SquadStore persists squad rows.
type SquadStore interface {
	CreateSquad(ctx context.Context, s squad.Squad) (squad.Squad, error)
	GetSquad(ctx context.Context, id string) (squad.Squad, error)
	// UpdateSquadLevelAndTreasury re-persists the mutable progression state
	// of an active squad. It must never touch a row whose disbanded_at is
	// already set.
	UpdateSquadLevelAndTreasury(ctx context.Context, id string, level, maxMembers int, treasury squad.Treasury) error
	UpdateSquadCaptain(ctx context.Context, id, captainID string) error
	MarkDisbanded(ctx context.Context, id string, at time.Time) error
	ListActiveSquads(ctx context.Context) ([]squad.Squad, error)
}

// MemberStore persists squad membership rows.
type MemberStore interface {
	CreateMember(ctx context.Context, m member.Member) (member.Member, error)
	GetMember(ctx context.Context, squadID, playerID string) (member.Member, error)
	ListMembers(ctx context.Context, squadID string) ([]member.Member, error)
	ListMembershipsByPlayer(ctx context.Context, playerID string) ([]member.Member, error)
	UpdateMemberRole(ctx context.Context, squadID, playerID string, role member.Role) error
	UpdateMemberContributions(ctx context.Context, squadID, playerID string, coins, xp int64) error
	DeleteMember(ctx context.Context, squadID, playerID string) error
}

// LedgerStore appends immutable treasury transaction rows.
type LedgerStore interface {
	AppendTransaction(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error)
	ListTransactions(ctx context.Context, squadID string, limit int) ([]ledger.Transaction, error)
}

// AuditStore appends immutable squad log rows.
type AuditStore interface {
	AppendEvent(ctx context.Context, ev audit.Event) (audit.Event, error)
	ListEvents(ctx context.Context, squadID string) ([]audit.Event, error)
}
