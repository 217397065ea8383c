package db

import (
	"context"
	"time"

	"cropguard/internal/types"
)

// ContactLogRepository provides data access for the agronomist_contacts
// table. The aggregator uses it for advisory context only — whether a
// human expert has already been contacted about the current report.
//
// Schema:
//
//	CREATE TABLE agronomist_contacts (
//	    id           BIGSERIAL PRIMARY KEY,
//	    farm_id      UUID NOT NULL REFERENCES farms(id),
//	    contacted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX agronomist_contacts_idx ON agronomist_contacts (farm_id, contacted_at DESC);
type ContactLogRepository struct {
	db DBTX
}

// NewContactLogRepository creates a new ContactLogRepository.
func NewContactLogRepository(db DBTX) *ContactLogRepository {
	return &ContactLogRepository{db: db}
}

var _ types.ContactLog = (*ContactLogRepository)(nil)

// ContactedSince reports whether a contact was recorded for the farm at or
// after the given time.
func (r *ContactLogRepository) ContactedSince(ctx context.Context, farmID string, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM agronomist_contacts WHERE farm_id = $1 AND contacted_at >= $2
		 )`,
		farmID, since,
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check contact log", err)
	}
	return exists, nil
}

// Record logs one agronomist contact for the farm.
func (r *ContactLogRepository) Record(ctx context.Context, farmID string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO agronomist_contacts (farm_id, contacted_at) VALUES ($1, $2)`,
		farmID, at,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record contact", err)
	}
	return nil
}
