package audit

import (
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-disaster-response/internal/models"
)

// Ledger appends to a record's audit trail. Appending is the only
// mutation it performs; entries are never removed or reordered, and
// authorization is the caller's concern.
type Ledger struct {
	clock clockwork.Clock
}

func NewLedger(clock clockwork.Clock) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ledger{clock: clock}
}

// Append adds one entry to the end of rec's audit trail.
func (l *Ledger) Append(rec *models.DisasterRecord, action models.AuditAction, actorID string, changes map[string]any) {
	rec.AuditTrail = append(rec.AuditTrail, models.AuditEntry{
		Action:    action,
		ActorID:   actorID,
		Timestamp: l.clock.Now().UTC(),
		Changes:   changes,
	})
}
