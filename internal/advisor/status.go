package advisor

import (
	"context"
	"log/slog"

	"cropguard/internal/types"
)

// DismissalKeyCriticalPest is the state-store key recording when the user
// dismissed the critical-pest advisory for a farm. A pest report analyzed
// after the stored timestamp re-arms the notification.
const DismissalKeyCriticalPest = RuleCriticalPest

// Aggregator derives the single urgent-notification flag consumed by the
// UI badge from engine output plus dismissal state. The state store and
// contact log are injected collaborators (never ambient globals) so tests
// can fake them.
type Aggregator struct {
	state    types.StateStore
	contacts types.ContactLog
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. contacts may be nil when no contact
// log is available; the AgronomistContacted field then stays false.
func NewAggregator(state types.StateStore, contacts types.ContactLog, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{state: state, contacts: contacts, logger: logger}
}

// Status reports whether the critical-pest advisory should be surfaced.
// HasUrgent is true iff the engine produced the critical-pest
// recommendation for this report AND the report's analyzed_at is strictly
// newer than the recorded dismissal. UrgentCount counts matching urgent
// items rather than casting the boolean, so additional urgent rules can
// feed the badge without a contract change.
//
// AgronomistContacted is looked up for context only; per current product
// behavior it does not gate HasUrgent.
func (a *Aggregator) Status(ctx context.Context, farmID string, recs []types.Recommendation, pest *types.PestReport) (types.AdvisorStatus, error) {
	var status types.AdvisorStatus
	if pest == nil {
		return status, nil
	}

	urgent := 0
	for _, r := range recs {
		if r.Urgency == types.UrgencyCritical && r.ID == RuleCriticalPest {
			urgent++
		}
	}
	if urgent == 0 {
		return status, nil
	}

	dismissedAt, found, err := a.state.Get(ctx, farmID, DismissalKeyCriticalPest)
	if err != nil {
		return status, types.NewAppError(types.ErrCodeInternalDB, "failed to read dismissal state", err)
	}
	if found && !pest.AnalyzedAt.After(dismissedAt) {
		return status, nil
	}

	status.HasUrgent = true
	status.UrgentCount = urgent

	if a.contacts != nil {
		contacted, err := a.contacts.ContactedSince(ctx, farmID, pest.AnalyzedAt)
		if err != nil {
			// Contact lookup is advisory; a failed lookup never blocks the badge.
			a.logger.Error("agronomist contact lookup failed",
				"farm_id", farmID,
				"error", err.Error(),
			)
		} else {
			status.AgronomistContacted = contacted
		}
	}

	return status, nil
}

// Dismiss records a dismissal timestamp for the given rule ID. Called when
// the user acknowledges an advisory (e.g. clicks the expert-directory link).
func (a *Aggregator) Dismiss(ctx context.Context, farmID, ruleID string, now types.Clock) error {
	if err := a.state.Put(ctx, farmID, ruleID, now.Now()); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record dismissal", err)
	}
	return nil
}
