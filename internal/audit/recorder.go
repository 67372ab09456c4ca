// Package audit appends squad log rows. Appends are best-effort: a failed
// write is logged and never unwinds the operation it describes.
package audit

import (
	"context"

	domain "github.com/ravenhold/squadcore/internal/domain/audit"
	"github.com/ravenhold/squadcore/internal/storage"
	"github.com/ravenhold/squadcore/pkg/logger"
)

// Recorder appends audit events for every squad state transition.
type Recorder struct {
	store storage.AuditStore
	log   *logger.Logger
}

// NewRecorder creates a recorder writing to the given store.
func NewRecorder(store storage.AuditStore, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.NewDefault("audit")
	}
	return &Recorder{store: store, log: log}
}

// Record appends one event. Failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, squadID, eventType, description, actorName string) {
	if r == nil || r.store == nil {
		return
	}
	_, err := r.store.AppendEvent(ctx, domain.Event{
		SquadID:     squadID,
		EventType:   eventType,
		Description: description,
		ActorName:   actorName,
	})
	if err != nil {
		r.log.WithError(err).
			WithField("squad_id", squadID).
			WithField("event_type", eventType).
			Warn("audit append failed")
	}
}

// Events returns the squad's log ordered by timestamp.
func (r *Recorder) Events(ctx context.Context, squadID string) ([]domain.Event, error) {
	return r.store.ListEvents(ctx, squadID)
}
