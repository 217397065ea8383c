package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"cropguard/internal/types"
)

// PestReportRepository provides data access for the pest_reports table.
// Reports are written by the external detection pipeline; the advisory
// engine only ever reads the most recent one per farm.
//
// Schema:
//
//	CREATE TABLE pest_reports (
//	    id                BIGSERIAL PRIMARY KEY,
//	    farm_id           UUID NOT NULL REFERENCES farms(id),
//	    infestation_level TEXT,
//	    confidence_score  DOUBLE PRECISION,
//	    analyzed_at       TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX pest_reports_latest_idx ON pest_reports (farm_id, analyzed_at DESC);
type PestReportRepository struct {
	db DBTX
}

// NewPestReportRepository creates a new PestReportRepository.
func NewPestReportRepository(db DBTX) *PestReportRepository {
	return &PestReportRepository{db: db}
}

// Latest returns the most recent pest report for the farm, or nil when
// none exists.
func (r *PestReportRepository) Latest(ctx context.Context, farmID string) (*types.PestReport, error) {
	var p types.PestReport
	var level *string
	err := r.db.QueryRow(ctx,
		`SELECT infestation_level, confidence_score, analyzed_at
		 FROM pest_reports
		 WHERE farm_id = $1
		 ORDER BY analyzed_at DESC
		 LIMIT 1`,
		farmID,
	).Scan(&level, &p.ConfidenceScore, &p.AnalyzedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read latest pest report", err)
	}
	if level != nil {
		l := types.InfestationLevel(*level)
		p.InfestationLevel = &l
	}
	return &p, nil
}

// Insert stores one pest report for the farm.
func (r *PestReportRepository) Insert(ctx context.Context, farmID string, p *types.PestReport) error {
	var level *string
	if p.InfestationLevel != nil {
		s := string(*p.InfestationLevel)
		level = &s
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO pest_reports (farm_id, infestation_level, confidence_score, analyzed_at)
		 VALUES ($1, $2, $3, $4)`,
		farmID, level, p.ConfidenceScore, p.AnalyzedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert pest report", err)
	}
	return nil
}
