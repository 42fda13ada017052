package models

// Health represents the health status of the service.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus represents the overall system status.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Sources    []SourceStatus    `json:"sources"`
	Refresh    *RefreshStatus    `json:"refresh,omitempty"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// SourceStatus represents the status of an upstream weather source.
type SourceStatus struct {
	Source        string       `json:"source"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}

// RefreshStatus summarizes the background weather refresh job.
type RefreshStatus struct {
	TotalRuns      int64      `json:"totalRuns"`
	FailedRuns     int64      `json:"failedRuns"`
	LastRunAt      *Timestamp `json:"lastRunAt,omitempty"`
	LastDurationMs int64      `json:"lastDurationMs"`
	LastSource     string     `json:"lastSource,omitempty"`
	LastSamples    int        `json:"lastSamples"`
}
