// Package member defines squad membership records, roles and the permission
// table that governs which mutations a role may perform.
package member

import (
	"errors"
	"time"
)

var (
	// ErrPermissionDenied is the declined outcome when a role lacks the
	// permission for an operation.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAlreadyMember indicates the player already holds a conflicting
	// membership.
	ErrAlreadyMember = errors.New("player is already a squad member")
	// ErrCaptainImmovable indicates an operation that would remove or
	// reassign the captain without a captaincy transfer.
	ErrCaptainImmovable = errors.New("captaincy must be transferred first")
	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = errors.New("invalid role")
)

// Role identifies a member's standing within a squad.
type Role string

const (
	RoleCaptain    Role = "CAPTAIN"
	RoleLieutenant Role = "LIEUTENANT"
	RoleMember     Role = "MEMBER"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleCaptain, RoleLieutenant, RoleMember:
		return true
	}
	return false
}

// Member relates one player to one squad.
type Member struct {
	ID                string
	SquadID           string
	PlayerID          string
	PlayerName        string
	Role              Role
	JoinedAt          time.Time
	ContributionCoins int64
	ContributionXP    int64
}
