package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/api/models"
	"github.com/coolroute/coolroute/internal/api/response"
	"github.com/coolroute/coolroute/internal/optimize"
	"github.com/coolroute/coolroute/internal/place"
	"github.com/coolroute/coolroute/pkg/geo"
)

// OptimalTimeHandler handles the optimal departure time search.
type OptimalTimeHandler struct {
	finder *optimize.Finder
	places place.Index
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewOptimalTimeHandler creates a new OptimalTimeHandler.
func NewOptimalTimeHandler(finder *optimize.Finder, places place.Index, logger zerolog.Logger) *OptimalTimeHandler {
	return &OptimalTimeHandler{
		finder: finder,
		places: places,
		logger: logger,
		now:    time.Now,
	}
}

// FindOptimalTime handles POST /v1/optimal-time - find the most comfortable
// departure time for a walk to a known place.
func (h *OptimalTimeHandler) FindOptimalTime(w http.ResponseWriter, r *http.Request) {
	var input models.OptimalTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if !validPoint(input.Start) {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "start", Message: "latitude or longitude out of range"})
	}
	if input.PlaceID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "placeId", Message: "required"})
	}
	date, err := time.ParseInLocation("2006-01-02", input.Date, time.Local)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "date", Message: "must be a YYYY-MM-DD date"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid optimal-time request", fieldErrors)
		return
	}

	destination, err := h.places.Place(r.Context(), input.PlaceID)
	if err != nil {
		if errors.Is(err, place.ErrPlaceNotFound) {
			response.NotFound(w, r, "unknown place id")
			return
		}
		h.logger.Error().Err(err).Str("place_id", input.PlaceID).Msg("place lookup failed")
		response.InternalError(w, r, "place lookup failed")
		return
	}

	req := optimize.Request{
		Start: geo.Point{Lat: input.Start.Lat, Lon: input.Start.Lon},
		Place: destination,
		Date:  date,
		Now:   h.now(),
	}
	if input.NotBefore != nil {
		req.NotBefore = input.NotBefore.Time()
	}
	if input.NotAfter != nil {
		req.NotAfter = input.NotAfter.Time()
	}

	result, err := h.finder.Find(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Str("place_id", input.PlaceID).Msg("optimal-time search failed")
		response.InternalError(w, r, "optimal-time search failed")
		return
	}
	if result == nil {
		response.NotFound(w, r, "no feasible departure time on the given date")
		return
	}

	resp := models.OptimalTimeResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Result:      toOptimalTimeResult(result),
	}
	response.JSON(w, r, http.StatusOK, resp)
}

func toOptimalTimeResult(result *optimize.Result) models.OptimalTimeResult {
	return models.OptimalTimeResult{
		Place:          toPlaceSummary(result.Place),
		OptimalTime:    models.Timestamp(result.OptimalTime),
		OptimalValue:   result.OptimalValue,
		DistanceMeters: result.Distance,
		WalkSeconds:    int(result.WalkDuration.Seconds()),
		OptimalPath:    toPoints(result.OptimalPath),
		ShortestPath:   toPoints(result.ShortestPath),
		Degraded:       result.Degraded,
	}
}

func toPlaceSummary(p place.Place) models.PlaceSummary {
	return models.PlaceSummary{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Location: models.Point{Lat: p.Location.Lat, Lon: p.Location.Lon},
	}
}
