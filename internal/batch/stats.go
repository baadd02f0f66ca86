package batch

import (
	"sforg/internal/metadata"
)

// ProcessingStats summarizes a batch result
type ProcessingStats struct {
	TotalItems int     `json:"totalItems"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	// SuccessRate is a percentage in [0,100]
	SuccessRate float64 `json:"successRate"`
	// AverageTimeMs divides total batch wall-clock time by item count:
	// it is a mean per-item share of batch time, not a measured
	// per-item latency. Kept for compatibility with upstream tooling.
	AverageTimeMs float64 `json:"averageTimeMs"`
}

// GetProcessingStats derives summary statistics from a result
func GetProcessingStats[T any](r metadata.ProcessingResult[T]) ProcessingStats {
	attempted := r.Attempted()
	stats := ProcessingStats{
		TotalItems: attempted,
		Succeeded:  len(r.Success),
		Failed:     len(r.Failures),
	}
	if attempted == 0 {
		return stats
	}

	stats.SuccessRate = float64(len(r.Success)) / float64(attempted) * 100
	stats.AverageTimeMs = float64(r.ProcessingTimeMs) / float64(attempted)
	return stats
}
