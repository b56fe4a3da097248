// Package metrics records generation outcomes for the dashboard and for
// Prometheus scraping.
package metrics

import "time"

// Outcome values for GenerationRecord.Outcome and the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// GenerationRecord is one finished orchestrated generation.
type GenerationRecord struct {
	Provider string `json:"provider"`

	// Outcome is "success" or "failed".
	Outcome string `json:"outcome"`

	// ErrorKind is empty on success.
	ErrorKind string `json:"error_kind,omitempty"`

	UsedFallback bool          `json:"used_fallback"`
	Duration     time.Duration `json:"duration"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// ProviderStats aggregates the records of a single provider.
type ProviderStats struct {
	Count        int64            `json:"count"`
	SuccessRate  float64          `json:"success_rate"`
	Fallbacks    int64            `json:"fallbacks"`
	AvgDuration  time.Duration    `json:"avg_duration"`
	FailureKinds map[string]int64 `json:"failure_kinds,omitempty"`
}

// GenerationStats summarises everything recorded since start.
type GenerationStats struct {
	Total      int64                     `json:"total"`
	Success    int64                     `json:"success"`
	Failed     int64                     `json:"failed"`
	ByProvider map[string]*ProviderStats `json:"by_provider"`
}

// SystemStatus is returned by the health endpoint.
type SystemStatus struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	Uptime      time.Duration   `json:"uptime"`
	Generations GenerationStats `json:"generations"`
}

// Health status values.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)
