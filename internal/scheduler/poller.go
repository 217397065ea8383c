// Package scheduler implements the long-running jobs of the CropGuard
// platform: the advisory poller that re-evaluates every farm on a cadence,
// and the maintenance service that archives old alerts and prunes advisor
// state.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cropguard/internal/advisor"
	"cropguard/internal/alerting"
	"cropguard/internal/metrics"
	"cropguard/internal/types"
)

// notifiedKeyPrefix namespaces the per-report notification markers in the
// advisor state store. The full key embeds analyzed_at so a newer report
// dispatches again while the same report never dispatches twice.
const notifiedKeyPrefix = "notified:" + advisor.RuleCriticalPest + ":"

// FarmLister provides the set of farms to evaluate each cycle.
type FarmLister interface {
	ListAll(ctx context.Context) ([]types.Farm, error)
}

// Poller runs the full advisory cycle: gather inputs, evaluate the rule
// engine, run both threshold evaluators, and dispatch critical-pest
// notifications. Farms are evaluated sequentially within a cycle, which
// serializes evaluation per farm.
type Poller struct {
	farms       FarmLister
	svc         *advisor.Service
	sensorEval  *alerting.SensorEvaluator
	weatherEval *alerting.WeatherEvaluator
	state       types.StateStore
	dispatcher  types.NotificationDispatcher
	collector   metrics.Collector
	clock       types.Clock
	logger      *slog.Logger
}

// NewPoller creates a Poller. dispatcher may be nil when no notification
// queue is configured; critical-pest dispatch is then skipped.
func NewPoller(
	farms FarmLister,
	svc *advisor.Service,
	sensorEval *alerting.SensorEvaluator,
	weatherEval *alerting.WeatherEvaluator,
	state types.StateStore,
	dispatcher types.NotificationDispatcher,
	collector metrics.Collector,
	clock types.Clock,
	logger *slog.Logger,
) *Poller {
	if collector == nil {
		collector = metrics.Noop{}
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		farms:       farms,
		svc:         svc,
		sensorEval:  sensorEval,
		weatherEval: weatherEval,
		state:       state,
		dispatcher:  dispatcher,
		collector:   collector,
		clock:       clock,
		logger:      logger,
	}
}

// Run executes evaluation cycles on the given interval until the context
// is canceled. The first cycle runs immediately.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.RunCycle(ctx); err != nil {
			p.logger.Error("evaluation cycle failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle evaluates every farm once. A failed farm is logged and skipped;
// the cycle continues with the remaining farms.
func (p *Poller) RunCycle(ctx context.Context) error {
	farms, err := p.farms.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing farms: %w", err)
	}

	for _, farm := range farms {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.evaluateFarm(ctx, farm); err != nil {
			p.collector.RecordCycleError(ctx, farm.ID)
			p.logger.Error("farm evaluation failed",
				"farm_id", farm.ID,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// evaluateFarm runs one full advisory pass for a farm.
func (p *Poller) evaluateFarm(ctx context.Context, farm types.Farm) error {
	in, recs := p.svc.Recommend(ctx, farm)
	p.collector.RecordEvaluation(ctx, farm.ID, len(recs))

	// Threshold evaluators swallow their own per-check failures.
	if in.Sensor != nil {
		if n := p.sensorEval.Evaluate(ctx, farm.ID, in.Sensor); n > 0 {
			p.collector.RecordAlertsCreated(ctx, "sensor", n)
		}
	}
	if in.Weather != nil {
		if n := p.weatherEval.Evaluate(ctx, farm.ID, in.Weather.Current); n > 0 {
			p.collector.RecordAlertsCreated(ctx, "weather", n)
		}
	}

	if in.Pest != nil {
		if err := p.maybeDispatchCriticalPest(ctx, farm.ID, recs, *in.Pest); err != nil {
			// Dispatch failure is logged, not fatal: the next cycle retries
			// because the notified marker is only written after success.
			p.logger.Error("critical pest dispatch failed",
				"farm_id", farm.ID,
				"error", err.Error(),
			)
		}
	}

	return nil
}

// maybeDispatchCriticalPest sends at most one notification per pest report.
// The advisor state key embeds analyzed_at, so a newer report gets a fresh
// key and dispatches again.
func (p *Poller) maybeDispatchCriticalPest(ctx context.Context, farmID string, recs []types.Recommendation, report types.PestReport) error {
	if p.dispatcher == nil {
		return nil
	}

	var critical *types.Recommendation
	for i := range recs {
		if recs[i].Urgency == types.UrgencyCritical && recs[i].ID == advisor.RuleCriticalPest {
			critical = &recs[i]
			break
		}
	}
	if critical == nil {
		return nil
	}

	key := notifiedKeyPrefix + report.AnalyzedAt.UTC().Format(time.RFC3339Nano)
	_, found, err := p.state.Get(ctx, farmID, key)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if err := p.dispatcher.DispatchCriticalPest(ctx, farmID, *critical, report); err != nil {
		return err
	}
	return p.state.Put(ctx, farmID, key, p.clock.Now())
}
