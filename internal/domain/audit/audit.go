// Package audit defines the append-only squad event log.
package audit

import "time"

// Event type tags, one per observable state transition.
const (
	EventSquadCreated     = "SQUAD_CREATED"
	EventSquadDisbanded   = "SQUAD_DISBANDED"
	EventSquadLevelUp     = "SQUAD_LEVEL_UP"
	EventMemberJoined     = "MEMBER_JOINED"
	EventMemberLeft       = "MEMBER_LEFT"
	EventRoleChanged      = "ROLE_CHANGED"
	EventCaptainChanged   = "CAPTAIN_CHANGED"
	EventTreasuryDeposit  = "TREASURY_DEPOSIT"
	EventTreasuryWithdraw = "TREASURY_WITHDRAW"
)

// Event is one immutable audit row.
type Event struct {
	ID          string
	SquadID     string
	EventType   string
	Description string
	ActorName   string
	Timestamp   time.Time
}
