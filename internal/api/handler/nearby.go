package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/coolroute/coolroute/internal/api/models"
	"github.com/coolroute/coolroute/internal/api/response"
	"github.com/coolroute/coolroute/internal/nearby"
	"github.com/coolroute/coolroute/internal/place"
	"github.com/coolroute/coolroute/pkg/geo"
)

// Nearby search defaults.
const (
	defaultNearbyResults  = 5
	defaultNearbyDistance = 2000.0
)

// NearbyHandler handles the nearby comfortable-destination search.
type NearbyHandler struct {
	search *nearby.Search
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewNearbyHandler creates a new NearbyHandler.
func NewNearbyHandler(search *nearby.Search, logger zerolog.Logger) *NearbyHandler {
	return &NearbyHandler{
		search: search,
		logger: logger,
		now:    time.Now,
	}
}

// FindNearby handles POST /v1/nearby - rank nearby places of a category by
// walking comfort.
func (h *NearbyHandler) FindNearby(w http.ResponseWriter, r *http.Request) {
	var input models.NearbyRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if !validPoint(input.Start) {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "start", Message: "latitude or longitude out of range"})
	}
	if input.Category == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "category", Message: "required"})
	}
	date, err := time.ParseInLocation("2006-01-02", input.Date, time.Local)
	if err != nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "date", Message: "must be a YYYY-MM-DD date"})
	}
	if input.Scoring != "" && input.Scoring != models.ScoringWeightedSum && input.Scoring != models.ScoringComfortOnly {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "scoring",
			Message: "must be one of WEIGHTED_SUM, COMFORT_ONLY",
		})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid nearby request", fieldErrors)
		return
	}

	req := nearby.Request{
		Start:       geo.Point{Lat: input.Start.Lat, Lon: input.Start.Lon},
		Predicate:   place.CategoryWithHours(input.Category),
		Date:        date,
		Now:         h.now(),
		MaxResults:  defaultNearbyResults,
		MaxDistance: defaultNearbyDistance,
	}
	if input.MaxResults != nil {
		req.MaxResults = *input.MaxResults
	}
	if input.MaxDistanceMeters != nil {
		req.MaxDistance = *input.MaxDistanceMeters
	}
	if input.Scoring == models.ScoringComfortOnly {
		req.Score = nearby.ComfortOnly()
	}

	ranked, err := h.search.Find(r.Context(), req)
	if err != nil {
		h.logger.Error().Err(err).Str("category", input.Category).Msg("nearby search failed")
		response.InternalError(w, r, "nearby search failed")
		return
	}

	results := make([]models.NearbyResult, len(ranked))
	for i, candidate := range ranked {
		results[i] = models.NearbyResult{
			Rank:           candidate.Rank,
			Score:          candidate.Score,
			Place:          toPlaceSummary(candidate.Place),
			OptimalTime:    models.Timestamp(candidate.OptimalTime),
			OptimalValue:   candidate.OptimalValue,
			DistanceMeters: candidate.Distance,
			WalkSeconds:    int(candidate.WalkDuration.Seconds()),
			Degraded:       candidate.Degraded,
		}
	}

	resp := models.NearbyResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Results:     results,
	}
	response.JSON(w, r, http.StatusOK, resp)
}
