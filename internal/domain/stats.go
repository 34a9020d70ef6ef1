package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatistics describes one elevation run. It is observational only.
type RunStatistics struct {
	PointsTotal      int     `json:"points_total"`
	CacheHits        int     `json:"cache_hits"`
	CacheMissPoints  int     `json:"cache_miss_points"`
	APIBatches       int     `json:"api_batches"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	PointsPerSecond  float64 `json:"points_per_second"`
	Clusters         int     `json:"clusters"`
	ShortBatches     int     `json:"short_batches"`
	FailedBatches    int     `json:"failed_batches"`
	Retries          int     `json:"retries"`
	UnresolvedPoints int     `json:"unresolved_points"`
}

// SetElapsed records the run duration and derives throughput.
func (s *RunStatistics) SetElapsed(d time.Duration) {
	s.ElapsedSeconds = d.Seconds()
	s.PointsPerSecond = 0
	if s.ElapsedSeconds > 0 {
		s.PointsPerSecond = float64(s.PointsTotal) / s.ElapsedSeconds
	}
}

// RunReport is the emitted form of a run: statistics plus run metadata.
type RunReport struct {
	RunID     string    `json:"run_id"`
	Dataset   string    `json:"dataset"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
	Strict    bool      `json:"strict"`
	RunStatistics
}

// NewRunReport stamps statistics with a fresh run ID and the current time.
func NewRunReport(stats RunStatistics, dataset, input, output string) RunReport {
	return RunReport{
		RunID:         uuid.NewString(),
		Dataset:       dataset,
		Input:         input,
		Output:        output,
		Timestamp:     clock.Now().UTC(),
		RunStatistics: stats,
	}
}
