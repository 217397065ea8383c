package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"

	"cropguard/internal/types"
)

// Retention windows for the maintenance jobs.
const (
	// AlertRetention is how long read alerts stay in the hot table before
	// they are compressed into an archive batch.
	AlertRetention = 90 * 24 * time.Hour
	// StateRetention is how long untouched advisor state entries are kept.
	StateRetention = 180 * 24 * time.Hour

	archiveBatchSize = 500
)

// AlertArchiveStore is the slice of the alert repository the archiver needs.
type AlertArchiveStore interface {
	SelectArchivable(ctx context.Context, cutoff time.Time, limit int) ([]types.Alert, error)
	InsertArchiveBatch(ctx context.Context, from, to time.Time, count int, payload []byte) error
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// StatePruner deletes advisor state entries not updated since the cutoff.
type StatePruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Maintenance archives old read alerts into zstd-compressed JSON batches
// and prunes stale advisor state.
type Maintenance struct {
	alerts AlertArchiveStore
	state  StatePruner
	clock  types.Clock
	logger *slog.Logger
}

// NewMaintenance creates a Maintenance service.
func NewMaintenance(alerts AlertArchiveStore, state StatePruner, clock types.Clock, logger *slog.Logger) *Maintenance {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintenance{alerts: alerts, state: state, clock: clock, logger: logger}
}

// Run executes one full maintenance pass: archive then prune. Each job's
// failure is reported but does not prevent the other from running.
func (m *Maintenance) Run(ctx context.Context) error {
	var firstErr error

	archived, err := m.ArchiveOldAlerts(ctx)
	if err != nil {
		firstErr = err
		m.logger.Error("alert archival failed", "error", err.Error())
	} else if archived > 0 {
		m.logger.Info("alerts archived", "count", archived)
	}

	pruned, err := m.PruneAdvisorState(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = err
		}
		m.logger.Error("advisor state prune failed", "error", err.Error())
	} else if pruned > 0 {
		m.logger.Info("advisor state pruned", "count", pruned)
	}

	return firstErr
}

// ArchiveOldAlerts moves read alerts older than AlertRetention into
// alert_archives, one compressed batch per pass iteration, and deletes the
// archived rows. Returns the total number of alerts archived.
func (m *Maintenance) ArchiveOldAlerts(ctx context.Context) (int, error) {
	cutoff := m.clock.Now().Add(-AlertRetention)
	total := 0

	for {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		batch, err := m.alerts.SelectArchivable(ctx, cutoff, archiveBatchSize)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			return total, nil
		}

		payload, err := encodeArchiveBatch(batch)
		if err != nil {
			return total, err
		}

		// Rows are ordered oldest first.
		from := batch[0].CreatedAt
		to := batch[len(batch)-1].CreatedAt
		if err := m.alerts.InsertArchiveBatch(ctx, from, to, len(batch), payload); err != nil {
			return total, err
		}

		ids := make([]string, len(batch))
		for i, a := range batch {
			ids[i] = a.ID
		}
		// A crash between insert and delete leaves the rows archivable
		// again; the next pass re-archives them, which duplicates the batch
		// but never loses data.
		if _, err := m.alerts.DeleteByIDs(ctx, ids); err != nil {
			return total, err
		}

		total += len(batch)
		if len(batch) < archiveBatchSize {
			return total, nil
		}
	}
}

// PruneAdvisorState deletes state entries untouched for StateRetention.
func (m *Maintenance) PruneAdvisorState(ctx context.Context) (int64, error) {
	return m.state.Prune(ctx, m.clock.Now().Add(-StateRetention))
}

// encodeArchiveBatch serializes alerts as JSON lines and zstd-compresses
// the result.
func encodeArchiveBatch(alerts []types.Alert) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, a := range alerts {
		if err := enc.Encode(a); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode alert for archive", err)
		}
	}

	var out bytes.Buffer
	zw, err := zstd.NewWriter(&out)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create archive compressor", err)
	}
	if _, err := zw.Write(buf.Bytes()); err != nil {
		zw.Close()
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to compress archive batch", err)
	}
	if err := zw.Close(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to finalize archive batch", err)
	}
	return out.Bytes(), nil
}

// DecodeArchiveBatch decompresses a stored archive payload back into
// alerts. Used by operational tooling to inspect archives.
func DecodeArchiveBatch(payload []byte) ([]types.Alert, error) {
	zr, err := zstd.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to open archive payload", err)
	}
	defer zr.Close()

	var alerts []types.Alert
	dec := json.NewDecoder(zr)
	for dec.More() {
		var a types.Alert
		if err := dec.Decode(&a); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected,
				fmt.Sprintf("failed to decode archived alert %d", len(alerts)), err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}
