package models

// RouteComputeRequest is the request body for computing a heat-aware route.
type RouteComputeRequest struct {
	Origin        Point       `json:"origin" validate:"required"`
	Destination   Point       `json:"destination" validate:"required"`
	DepartureTime string      `json:"departureTime" validate:"required"`
	CostVariant   CostVariant `json:"costVariant,omitempty"`

	// DistanceWeight and ThermalWeight tune the weighted variant; both
	// optional, each in [0,1]. Ignored by the other variants.
	DistanceWeight *float64 `json:"distanceWeight,omitempty" validate:"omitempty,gte=0,lte=1"`
	ThermalWeight  *float64 `json:"thermalWeight,omitempty" validate:"omitempty,gte=0,lte=1"`

	// IncludeShortest also computes the plain shortest route for comparison.
	IncludeShortest bool `json:"includeShortest,omitempty"`
}

// RouteComputeResponse is the response for route computation.
type RouteComputeResponse struct {
	GeneratedAt Timestamp    `json:"generatedAt"`
	Route       RouteResult  `json:"route"`
	Shortest    *RouteResult `json:"shortest,omitempty"`
	Warnings    []Warning    `json:"warnings,omitempty"`
}

// RouteResult describes one computed route.
type RouteResult struct {
	DistanceMeters  float64 `json:"distanceMeters"`
	DurationSeconds int     `json:"durationSeconds"`
	Cost            float64 `json:"cost"`
	Path            []Point `json:"path"`

	// GeometryPolyline is the path as a Google-style encoded polyline.
	GeometryPolyline string `json:"geometryPolyline,omitempty"`
}

// Warning represents a non-fatal issue in the response.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
