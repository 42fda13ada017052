package models

// NearbyRequest is the request body for the nearby comfortable-destination
// search.
type NearbyRequest struct {
	Start    Point  `json:"start" validate:"required"`
	Category string `json:"category" validate:"required"`
	Date     string `json:"date" validate:"required"`

	// MaxResults caps the candidate set (default 5).
	MaxResults *int `json:"maxResults,omitempty" validate:"omitempty,gte=1,lte=20"`

	// MaxDistanceMeters is the search radius (default 2000).
	MaxDistanceMeters *float64 `json:"maxDistanceMeters,omitempty" validate:"omitempty,gt=0"`

	// Scoring selects the candidate score function (default WEIGHTED_SUM).
	Scoring Scoring `json:"scoring,omitempty"`
}

// NearbyResponse is the response for the nearby search.
type NearbyResponse struct {
	GeneratedAt Timestamp      `json:"generatedAt"`
	Results     []NearbyResult `json:"results"`
}

// NearbyResult is one ranked candidate.
type NearbyResult struct {
	Rank           int          `json:"rank"`
	Score          float64      `json:"score"`
	Place          PlaceSummary `json:"place"`
	OptimalTime    Timestamp    `json:"optimalTime"`
	OptimalValue   float64      `json:"optimalValue"`
	DistanceMeters float64      `json:"distanceMeters"`
	WalkSeconds    int          `json:"walkSeconds"`
	Degraded       bool         `json:"degraded"`
}
