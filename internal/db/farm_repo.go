package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"cropguard/internal/types"
)

// FarmRepository provides data access for the farms table.
//
// Schema:
//
//	CREATE TABLE farms (
//	    id         UUID PRIMARY KEY,
//	    owner_id   UUID NOT NULL,
//	    name       TEXT NOT NULL,
//	    lat        DOUBLE PRECISION NOT NULL,
//	    lon        DOUBLE PRECISION NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type FarmRepository struct {
	db DBTX
}

// NewFarmRepository creates a new FarmRepository.
func NewFarmRepository(db DBTX) *FarmRepository {
	return &FarmRepository{db: db}
}

// Create registers a new farm.
func (r *FarmRepository) Create(ctx context.Context, f *types.Farm) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO farms (id, owner_id, name, lat, lon, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.OwnerID, f.Name, f.Lat, f.Lon, f.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create farm", err)
	}
	return nil
}

// Get returns one farm by ID.
func (r *FarmRepository) Get(ctx context.Context, farmID string) (*types.Farm, error) {
	var f types.Farm
	err := r.db.QueryRow(ctx,
		`SELECT id, owner_id, name, lat, lon, created_at FROM farms WHERE id = $1`,
		farmID,
	).Scan(&f.ID, &f.OwnerID, &f.Name, &f.Lat, &f.Lon, &f.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, types.NewAppError(types.ErrCodeNotFoundFarm, "farm not found", nil)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read farm", err)
	}
	return &f, nil
}

// ListAll returns every registered farm, for the poller's evaluation cycle.
func (r *FarmRepository) ListAll(ctx context.Context) ([]types.Farm, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, owner_id, name, lat, lon, created_at FROM farms ORDER BY created_at`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list farms", err)
	}
	defer rows.Close()

	var farms []types.Farm
	for rows.Next() {
		var f types.Farm
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Lat, &f.Lon, &f.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan farm", err)
		}
		farms = append(farms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate farms", err)
	}
	return farms, nil
}
