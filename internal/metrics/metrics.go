// Package metrics emits operational metrics for the advisory pipeline.
package metrics

import "context"

// Collector records evaluation-cycle metrics. The poller calls it on every
// farm evaluation; implementations must never block the cycle on a failed
// publish.
type Collector interface {
	// RecordEvaluation records one completed farm evaluation and the number
	// of recommendations it produced.
	RecordEvaluation(ctx context.Context, farmID string, recommendations int)
	// RecordAlertsCreated records how many alerts a cycle materialized,
	// tagged by origin ("sensor" or "weather").
	RecordAlertsCreated(ctx context.Context, origin string, count int)
	// RecordCycleError records a failed farm evaluation.
	RecordCycleError(ctx context.Context, farmID string)
}

// Noop is a Collector that discards everything. Used when metrics are
// disabled (local development).
type Noop struct{}

func (Noop) RecordEvaluation(context.Context, string, int)    {}
func (Noop) RecordAlertsCreated(context.Context, string, int) {}
func (Noop) RecordCycleError(context.Context, string)         {}
