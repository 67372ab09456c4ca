// Package ledger defines the immutable treasury transaction history.
package ledger

import "time"

// Action identifies the kind of treasury mutation a transaction records.
type Action string

const (
	ActionDeposit      Action = "DEPOSIT"
	ActionWithdraw     Action = "WITHDRAW"
	ActionUpgradeSpend Action = "UPGRADE_SPEND"
)

// ResourceType identifies which treasury balance a transaction touched.
type ResourceType string

const (
	ResourceCoins ResourceType = "COINS"
	ResourceXP    ResourceType = "XP"
)

// Valid reports whether the resource type is a known value.
func (r ResourceType) Valid() bool {
	return r == ResourceCoins || r == ResourceXP
}

// Transaction is one append-only ledger row. Rows are never updated or
// deleted once written.
type Transaction struct {
	ID           string
	SquadID      string
	Action       Action
	Amount       int64
	ResourceType ResourceType
	ActorName    string
	Timestamp    time.Time
}
