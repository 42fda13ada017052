package routing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/pkg/geo"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Engine is the weighted-shortest-path oracle.
	Engine Engine

	// Logger for service operations.
	Logger zerolog.Logger

	// WalkingSpeed in meters per second, used when the engine reports no
	// duration (default: 1.4, a typical pedestrian pace).
	WalkingSpeed float64
}

// Service is the route helper the objective functions collaborate with. It
// validates coordinates, fills in missing durations, and logs route queries;
// the actual graph search stays inside the engine.
type Service struct {
	engine       Engine
	logger       zerolog.Logger
	walkingSpeed float64
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	walkingSpeed := cfg.WalkingSpeed
	if walkingSpeed == 0 {
		walkingSpeed = 1.4
	}

	return &Service{
		engine:       cfg.Engine,
		logger:       cfg.Logger,
		walkingSpeed: walkingSpeed,
	}
}

// Route queries the engine with the given cost function.
func (s *Service) Route(ctx context.Context, start, end geo.Point, at time.Time, cost CostFunc) (*Route, error) {
	if !start.Valid() || !end.Valid() {
		return nil, ErrInvalidCoordinates
	}

	route, err := s.engine.Route(ctx, start, end, at, cost)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("start_lat", start.Lat).
			Float64("start_lon", start.Lon).
			Float64("end_lat", end.Lat).
			Float64("end_lon", end.Lon).
			Time("at", at).
			Msg("route query failed")
		return nil, err
	}

	if route.Duration == 0 && route.Distance > 0 {
		route.Duration = time.Duration(route.Distance / s.walkingSpeed * float64(time.Second))
	}

	for _, engineErr := range route.Errors {
		s.logger.Warn().
			Str("engine", engineErr.Engine).
			Str("code", engineErr.Code).
			Msg(engineErr.Message)
	}

	s.logger.Debug().
		Float64("distance_m", route.Distance).
		Dur("duration", route.Duration).
		Float64("cost", route.Cost).
		Time("at", at).
		Msg("route computed")

	return route, nil
}

// ShortestRoute queries the engine with the plain distance cost. Its
// duration is the walk-time estimate the optimal-time finder uses to bound
// feasible departure windows.
func (s *Service) ShortestRoute(ctx context.Context, start, end geo.Point, at time.Time) (*Route, error) {
	return s.Route(ctx, start, end, at, DistanceCost)
}
