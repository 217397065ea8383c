package advisor

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"cropguard/internal/types"
)

// ReadingSource returns the latest sensor snapshot for a farm, or nil when
// the farm has no readings yet.
type ReadingSource interface {
	Latest(ctx context.Context, farmID string) (*types.SensorSnapshot, error)
}

// PestSource returns the latest pest report for a farm, or nil when none
// exists.
type PestSource interface {
	Latest(ctx context.Context, farmID string) (*types.PestReport, error)
}

// MarketSource returns the most recent price submissions across all crops.
type MarketSource interface {
	Recent(ctx context.Context, limit int) ([]types.MarketSample, error)
}

// Service gathers the four advisory inputs for a farm and runs the engine.
// Each source is fetched concurrently; a failed source is logged and
// degrades to a nil/empty input, which the engine treats as "rules that
// need it do not fire" rather than an error.
type Service struct {
	readings    ReadingSource
	pests       PestSource
	market      MarketSource
	weather     types.WeatherSource
	marketLimit int
	logger      *slog.Logger
}

// NewService creates a Service. marketLimit bounds how many recent market
// samples feed the trend rule; zero or negative falls back to 50.
func NewService(
	readings ReadingSource,
	pests PestSource,
	market MarketSource,
	weather types.WeatherSource,
	marketLimit int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if marketLimit <= 0 {
		marketLimit = 50
	}
	return &Service{
		readings:    readings,
		pests:       pests,
		market:      market,
		weather:     weather,
		marketLimit: marketLimit,
		logger:      logger,
	}
}

// Gather fetches all four inputs for the farm. Individual source failures
// are swallowed per input; the returned Inputs is always usable.
func (s *Service) Gather(ctx context.Context, farm types.Farm) Inputs {
	var in Inputs

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		snapshot, err := s.readings.Latest(gctx, farm.ID)
		if err != nil {
			s.logger.Warn("sensor snapshot fetch failed", "farm_id", farm.ID, "error", err.Error())
			return nil
		}
		in.Sensor = snapshot
		return nil
	})

	g.Go(func() error {
		report, err := s.pests.Latest(gctx, farm.ID)
		if err != nil {
			s.logger.Warn("pest report fetch failed", "farm_id", farm.ID, "error", err.Error())
			return nil
		}
		in.Pest = report
		return nil
	})

	g.Go(func() error {
		samples, err := s.market.Recent(gctx, s.marketLimit)
		if err != nil {
			s.logger.Warn("market samples fetch failed", "error", err.Error())
			return nil
		}
		in.Market = samples
		return nil
	})

	g.Go(func() error {
		snapshot, err := s.weather.Forecast(gctx, farm.Lat, farm.Lon)
		if err != nil {
			s.logger.Warn("weather forecast fetch failed", "farm_id", farm.ID, "error", err.Error())
			return nil
		}
		in.Weather = snapshot
		return nil
	})

	// Goroutines above only ever return nil; Wait is for synchronization.
	_ = g.Wait()

	return in
}

// Recommend gathers inputs and evaluates the rule table in one call.
func (s *Service) Recommend(ctx context.Context, farm types.Farm) (Inputs, []types.Recommendation) {
	in := s.Gather(ctx, farm)
	return in, Generate(in)
}
