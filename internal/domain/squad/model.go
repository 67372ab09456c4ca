// Package squad defines the core squad entity and its progression rules.
package squad

import (
	"errors"
	"strings"
	"time"
)

// MaxLevel is the highest level a squad can reach.
const MaxLevel = 5

var (
	// ErrEmptyName indicates a missing squad name.
	ErrEmptyName = errors.New("squad name is required")
	// ErrMaxLevel indicates the squad is already at the level cap.
	ErrMaxLevel = errors.New("squad is at maximum level")
	// ErrDisbanded indicates the squad has been disbanded and is terminal.
	ErrDisbanded = errors.New("squad is disbanded")
	// ErrNegativeAmount indicates a treasury amount below zero.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrInsufficientFunds is the declined outcome when a balance cannot
	// cover a withdrawal or cost.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrSquadFull is the declined outcome when the member cap is reached.
	ErrSquadFull = errors.New("squad is full")
	// ErrSquadLimit is the declined outcome when the active squad cap is
	// reached.
	ErrSquadLimit = errors.New("squad limit reached")
	// ErrDisabled indicates the squad subsystem is disabled by configuration.
	ErrDisabled = errors.New("squad subsystem is disabled")
)

// Treasury is a squad's shared balance of coins and experience.
type Treasury struct {
	Coins int64
	XP    int64
}

// Squad represents a persistent player group.
type Squad struct {
	ID          string
	Name        string
	CaptainID   string
	Description string
	Level       int
	Treasury    Treasury
	MaxMembers  int
	CreatedAt   time.Time
	DisbandedAt *time.Time
}

// Disbanded reports whether the squad has reached its terminal state.
func (s Squad) Disbanded() bool {
	return s.DisbandedAt != nil
}

// ValidateName checks a prospective squad name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return nil
}
