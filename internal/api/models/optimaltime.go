package models

// OptimalTimeRequest is the request body for the optimal departure search.
type OptimalTimeRequest struct {
	Start   Point  `json:"start" validate:"required"`
	PlaceID string `json:"placeId" validate:"required"`
	Date    string `json:"date" validate:"required"`

	// NotBefore and NotAfter optionally tighten the searched time range.
	NotBefore *Timestamp `json:"notBefore,omitempty"`
	NotAfter  *Timestamp `json:"notAfter,omitempty"`
}

// OptimalTimeResponse is the response for the optimal departure search.
type OptimalTimeResponse struct {
	GeneratedAt Timestamp         `json:"generatedAt"`
	Result      OptimalTimeResult `json:"result"`
}

// OptimalTimeResult describes the best departure found for one place.
type OptimalTimeResult struct {
	Place          PlaceSummary `json:"place"`
	OptimalTime    Timestamp    `json:"optimalTime"`
	OptimalValue   float64      `json:"optimalValue"`
	DistanceMeters float64      `json:"distanceMeters"`
	WalkSeconds    int          `json:"walkSeconds"`
	OptimalPath    []Point      `json:"optimalPath,omitempty"`
	ShortestPath   []Point      `json:"shortestPath,omitempty"`

	// Degraded marks a result whose departure time was shifted for
	// feasibility while the route still reflects the pre-shift departure.
	Degraded bool `json:"degraded"`
}

// PlaceSummary identifies a point of interest in responses.
type PlaceSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Location Point  `json:"location"`
}
