package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"cropguard/internal/types"
)

// AdvisorStateRepository is the key->timestamp store backing dismissal and
// notification bookkeeping.
//
// Schema:
//
//	CREATE TABLE advisor_state (
//	    farm_id    UUID NOT NULL REFERENCES farms(id),
//	    key        TEXT NOT NULL,
//	    ts         TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (farm_id, key)
//	);
type AdvisorStateRepository struct {
	db DBTX
}

// NewAdvisorStateRepository creates a new AdvisorStateRepository.
func NewAdvisorStateRepository(db DBTX) *AdvisorStateRepository {
	return &AdvisorStateRepository{db: db}
}

var _ types.StateStore = (*AdvisorStateRepository)(nil)

// Get returns the stored timestamp for (farmID, key). found is false when
// no entry exists.
func (r *AdvisorStateRepository) Get(ctx context.Context, farmID, key string) (time.Time, bool, error) {
	var ts time.Time
	err := r.db.QueryRow(ctx,
		`SELECT ts FROM advisor_state WHERE farm_id = $1 AND key = $2`,
		farmID, key,
	).Scan(&ts)
	if err == pgx.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, types.NewAppError(types.ErrCodeInternalDB, "failed to read advisor state", err)
	}
	return ts, true, nil
}

// Put upserts the timestamp for (farmID, key).
func (r *AdvisorStateRepository) Put(ctx context.Context, farmID, key string, ts time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO advisor_state (farm_id, key, ts, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (farm_id, key) DO UPDATE SET ts = EXCLUDED.ts, updated_at = NOW()`,
		farmID, key, ts,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to write advisor state", err)
	}
	return nil
}

// Prune deletes state entries not updated since the cutoff. Dismissals and
// notification markers for long-gone reports have no effect and only
// accumulate.
func (r *AdvisorStateRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM advisor_state WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to prune advisor state", err)
	}
	return tag.RowsAffected(), nil
}
