package db

import (
	"context"

	"cropguard/internal/types"
)

// MarketRepository provides data access for the market_prices table — the
// unordered multiset of community/simulated price submissions the trend
// rule consumes.
//
// Schema:
//
//	CREATE TABLE market_prices (
//	    id           BIGSERIAL PRIMARY KEY,
//	    crop_name    TEXT NOT NULL,
//	    price_per_kg DOUBLE PRECISION NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX market_prices_recent_idx ON market_prices (created_at DESC);
type MarketRepository struct {
	db DBTX
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db DBTX) *MarketRepository {
	return &MarketRepository{db: db}
}

// Recent returns the most recent submissions across all crops, newest
// first. The engine filters by crop name and re-sorts internally.
func (r *MarketRepository) Recent(ctx context.Context, limit int) ([]types.MarketSample, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT crop_name, price_per_kg, created_at
		 FROM market_prices
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list market samples", err)
	}
	defer rows.Close()

	var samples []types.MarketSample
	for rows.Next() {
		var s types.MarketSample
		if err := rows.Scan(&s.CropName, &s.PricePerKg, &s.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan market sample", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate market samples", err)
	}
	return samples, nil
}

// Insert stores one price submission.
func (r *MarketRepository) Insert(ctx context.Context, s *types.MarketSample) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO market_prices (crop_name, price_per_kg, created_at) VALUES ($1, $2, $3)`,
		s.CropName, s.PricePerKg, s.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert market sample", err)
	}
	return nil
}
