package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"cropguard/internal/types"
)

// ReadingRepository provides data access for the sensor_readings table.
//
// Schema:
//
//	CREATE TABLE sensor_readings (
//	    id              BIGSERIAL PRIMARY KEY,
//	    farm_id         UUID NOT NULL REFERENCES farms(id),
//	    temperature     DOUBLE PRECISION,
//	    humidity        DOUBLE PRECISION,
//	    soil_moisture   DOUBLE PRECISION,
//	    light_intensity DOUBLE PRECISION,
//	    recorded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX sensor_readings_latest_idx ON sensor_readings (farm_id, recorded_at DESC);
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository creates a new ReadingRepository.
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Latest returns the most recent sensor snapshot for the farm, or nil when
// the farm has no readings yet (not an error).
func (r *ReadingRepository) Latest(ctx context.Context, farmID string) (*types.SensorSnapshot, error) {
	var s types.SensorSnapshot
	err := r.db.QueryRow(ctx,
		`SELECT temperature, humidity, soil_moisture, light_intensity, recorded_at
		 FROM sensor_readings
		 WHERE farm_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT 1`,
		farmID,
	).Scan(&s.Temperature, &s.Humidity, &s.SoilMoisture, &s.LightIntensity, &s.RecordedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read latest sensor snapshot", err)
	}
	return &s, nil
}

// Insert stores one sensor reading for the farm.
func (r *ReadingRepository) Insert(ctx context.Context, farmID string, s *types.SensorSnapshot) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sensor_readings (farm_id, temperature, humidity, soil_moisture, light_intensity, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		farmID, s.Temperature, s.Humidity, s.SoilMoisture, s.LightIntensity, s.RecordedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert sensor reading", err)
	}
	return nil
}
