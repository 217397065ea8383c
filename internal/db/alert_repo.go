package db

import (
	"context"
	"time"

	"cropguard/internal/types"
)

// AlertRepository provides data access for the alerts table.
//
// Schema:
//
//	CREATE TABLE alerts (
//	    id          UUID PRIMARY KEY,
//	    farm_id     UUID NOT NULL REFERENCES farms(id),
//	    alert_type  TEXT NOT NULL,
//	    severity    TEXT NOT NULL,
//	    message     TEXT NOT NULL,
//	    category    TEXT NOT NULL,
//	    priority    INT NOT NULL DEFAULT 3,
//	    is_read     BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX alerts_dedup_idx ON alerts (farm_id, alert_type, category, created_at DESC);
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a new AlertRepository backed by the given
// database connection (pool or transaction).
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

// Compile-time assertion that AlertRepository implements the sink used by
// the threshold evaluators.
var _ types.AlertSink = (*AlertRepository)(nil)

// InsertIfAbsent inserts the alert unless one with the same
// (farm_id, alert_type, category) was created after `since`. The existence
// check and the insert execute as a single statement, so concurrent
// evaluations for the same farm cannot both insert within the window —
// this closes the read-then-write race the two-call approach has.
// Returns true when a row was actually inserted.
func (r *AlertRepository) InsertIfAbsent(ctx context.Context, a *types.Alert, since time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO alerts (id, farm_id, alert_type, severity, message, category, priority, is_read, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		 WHERE NOT EXISTS (
		     SELECT 1 FROM alerts
		     WHERE farm_id = $2 AND alert_type = $3 AND category = $6 AND created_at >= $10
		 )`,
		a.ID,
		a.FarmID,
		a.AlertType,
		string(a.Severity),
		a.Message,
		string(a.Category),
		a.Priority,
		a.IsRead,
		a.CreatedAt,
		since,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to insert alert", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Exists reports whether an alert with the dedup key was created at or
// after `since`. Kept for callers that only need the check (e.g. API
// surfacing); the evaluators use InsertIfAbsent instead.
func (r *AlertRepository) Exists(ctx context.Context, farmID, alertType string, category types.AlertCategory, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM alerts
		     WHERE farm_id = $1 AND alert_type = $2 AND category = $3 AND created_at >= $4
		 )`,
		farmID, alertType, string(category), since,
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check alert existence", err)
	}
	return exists, nil
}

// List returns a farm's alerts newest-first. When unreadOnly is set, read
// alerts are filtered out.
func (r *AlertRepository) List(ctx context.Context, farmID string, unreadOnly bool, limit int) ([]types.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, farm_id, alert_type, severity, message, category, priority, is_read, created_at
	          FROM alerts WHERE farm_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, farmID, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list alerts", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var a types.Alert
		var severity, category string
		if err := rows.Scan(&a.ID, &a.FarmID, &a.AlertType, &severity, &a.Message, &category, &a.Priority, &a.IsRead, &a.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan alert", err)
		}
		a.Severity = types.AlertSeverity(severity)
		a.Category = types.AlertCategory(category)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate alerts", err)
	}
	return alerts, nil
}

// MarkRead flags a single alert as read.
func (r *AlertRepository) MarkRead(ctx context.Context, alertID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE alerts SET is_read = TRUE WHERE id = $1`, alertID)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark alert read", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundAlert, "alert not found", nil)
	}
	return nil
}

// SelectArchivable returns read alerts created before the cutoff, oldest
// first, up to limit. Used by the maintenance archiver.
func (r *AlertRepository) SelectArchivable(ctx context.Context, cutoff time.Time, limit int) ([]types.Alert, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, farm_id, alert_type, severity, message, category, priority, is_read, created_at
		 FROM alerts
		 WHERE is_read = TRUE AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to select archivable alerts", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var a types.Alert
		var severity, category string
		if err := rows.Scan(&a.ID, &a.FarmID, &a.AlertType, &severity, &a.Message, &category, &a.Priority, &a.IsRead, &a.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan archivable alert", err)
		}
		a.Severity = types.AlertSeverity(severity)
		a.Category = types.AlertCategory(category)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate archivable alerts", err)
	}
	return alerts, nil
}

// DeleteByIDs removes alerts after they have been archived.
func (r *AlertRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM alerts WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete archived alerts", err)
	}
	return tag.RowsAffected(), nil
}

// InsertArchiveBatch stores one compressed batch of archived alerts.
//
// Schema:
//
//	CREATE TABLE alert_archives (
//	    id          BIGSERIAL PRIMARY KEY,
//	    batch_from  TIMESTAMPTZ NOT NULL,
//	    batch_to    TIMESTAMPTZ NOT NULL,
//	    alert_count INT NOT NULL,
//	    payload     BYTEA NOT NULL,  -- zstd-compressed JSON lines
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
func (r *AlertRepository) InsertArchiveBatch(ctx context.Context, from, to time.Time, count int, payload []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO alert_archives (batch_from, batch_to, alert_count, payload)
		 VALUES ($1, $2, $3, $4)`,
		from, to, count, payload,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert alert archive batch", err)
	}
	return nil
}
