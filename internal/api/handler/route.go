// Package handler provides HTTP handlers for the CoolRoute API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/api/models"
	"github.com/coolroute/coolroute/internal/api/response"
	"github.com/coolroute/coolroute/internal/cost"
	"github.com/coolroute/coolroute/internal/matching"
	"github.com/coolroute/coolroute/internal/routing"
	"github.com/coolroute/coolroute/internal/segment"
	"github.com/coolroute/coolroute/internal/weather"
	"github.com/coolroute/coolroute/pkg/geo"
)

// RouteHandler handles heat-aware route computation.
type RouteHandler struct {
	routes   *routing.Service
	weather  *weather.Snapshot
	segments *segment.Store
	matcher  *matching.Matcher
	logger   zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routes *routing.Service, snapshot *weather.Snapshot, segments *segment.Store, matcher *matching.Matcher, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		routes:   routes,
		weather:  snapshot,
		segments: segments,
		matcher:  matcher,
		logger:   logger,
	}
}

// costVariant maps the API enum onto the cost package's variant.
func costVariant(v models.CostVariant) cost.Variant {
	switch v {
	case models.CostVariantHeatIndex:
		return cost.VariantHeatIndex
	case models.CostVariantWeightedHeatIndex:
		return cost.VariantWeightedHeatIndex
	default:
		return cost.VariantTemperature
	}
}

// ComputeRoutes handles POST /v1/routes - compute a heat-aware route.
func (h *RouteHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	fieldErrors := validatePoints(input.Origin, input.Destination)
	if input.CostVariant != "" && !input.CostVariant.Valid() {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "costVariant",
			Message: "must be one of TEMPERATURE, HEAT_INDEX, WEIGHTED_HEAT_INDEX",
		})
	}
	departure, err := time.Parse(time.RFC3339, input.DepartureTime)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "departureTime",
			Message: "must be an RFC3339 timestamp",
		})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid route request", fieldErrors)
		return
	}

	cfg := cost.Config{
		Weather:  h.weather.Current(),
		Segments: h.segments,
		Matcher:  h.matcher,
		Variant:  costVariant(input.CostVariant),
		Logger:   h.logger,
	}
	if input.DistanceWeight != nil {
		cfg.DistanceWeight = *input.DistanceWeight
	}
	if input.ThermalWeight != nil {
		cfg.ThermalWeight = *input.ThermalWeight
	}
	model := cost.New(cfg)

	origin := geo.Point{Lat: input.Origin.Lat, Lon: input.Origin.Lon}
	destination := geo.Point{Lat: input.Destination.Lat, Lon: input.Destination.Lon}

	route, err := h.routes.Route(r.Context(), origin, destination, departure, model.EdgeCost)
	if err != nil {
		h.writeRouteError(w, r, err)
		return
	}

	resp := models.RouteComputeResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Route:       toRouteResult(route),
		Warnings:    toWarnings(route.Errors),
	}

	if input.IncludeShortest {
		shortest, err := h.routes.ShortestRoute(r.Context(), origin, destination, departure)
		if err != nil {
			h.writeRouteError(w, r, err)
			return
		}
		result := toRouteResult(shortest)
		resp.Shortest = &result
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, resp)
}

// writeRouteError maps routing and cost errors onto problem responses.
func (h *RouteHandler) writeRouteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, routing.ErrInvalidCoordinates):
		response.BadRequest(w, r, "coordinates out of range", nil)
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, "no route found between the given points")
	case errors.Is(err, routing.ErrEngineUnavailable):
		response.ServiceUnavailable(w, r, "path engine unavailable")
	case errors.Is(err, cost.ErrNegativeCost):
		h.logger.Error().Err(err).Msg("route aborted on negative edge cost")
		response.InternalError(w, r, "route computation aborted")
	default:
		h.logger.Error().Err(err).Msg("route computation failed")
		response.InternalError(w, r, "route computation failed")
	}
}

func validatePoints(origin, destination models.Point) []models.FieldError {
	var fieldErrors []models.FieldError
	if !validPoint(origin) {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "origin", Message: "latitude or longitude out of range"})
	}
	if !validPoint(destination) {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "destination", Message: "latitude or longitude out of range"})
	}
	return fieldErrors
}

func validPoint(p models.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func toRouteResult(route *routing.Route) models.RouteResult {
	return models.RouteResult{
		DistanceMeters:   route.Distance,
		DurationSeconds:  int(route.Duration.Seconds()),
		Cost:             route.Cost,
		Path:             toPoints(route.Path),
		GeometryPolyline: geo.EncodePolyline(route.Path),
	}
}

func toPoints(path []geo.Point) []models.Point {
	points := make([]models.Point, len(path))
	for i, p := range path {
		points[i] = models.Point{Lat: p.Lat, Lon: p.Lon}
	}
	return points
}

func toWarnings(errs []routing.Error) []models.Warning {
	if len(errs) == 0 {
		return nil
	}
	warnings := make([]models.Warning, len(errs))
	for i, e := range errs {
		warnings[i] = models.Warning{Code: e.Code, Message: e.Message}
	}
	return warnings
}
