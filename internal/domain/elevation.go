package domain

import "context"

// Elevation is a resolved terrain height in meters, or absent when Valid is false.
type Elevation struct {
	Value float64
	Valid bool
}

// Meters returns a present elevation.
func Meters(v float64) Elevation {
	return Elevation{Value: v, Valid: true}
}

// OrZero returns the value, or 0 when absent.
func (e Elevation) OrZero() float64 {
	if !e.Valid {
		return 0
	}
	return e.Value
}

// ProgressFunc observes batch completion. It must not block for long.
type ProgressFunc func(done, total int)

// BatchOutcome is what an ElevationProvider reports for one resolve call.
// Elevations has the same length and order as the requested coordinates.
type BatchOutcome struct {
	Elevations    []Elevation
	Batches       int // request groups sent (one per batch, regardless of retries)
	ShortBatches  int // successful responses with fewer results than requested
	FailedBatches int // batches that resolved to all-absent
	Retries       int // extra attempts across all batches
}

// ElevationProvider resolves elevations for an ordered list of coordinates.
type ElevationProvider interface {
	Resolve(ctx context.Context, coords []Coordinate, progress ProgressFunc) (BatchOutcome, error)
}

// Unresolved counts absent elevations.
func Unresolved(elevations []Elevation) int {
	n := 0
	for _, e := range elevations {
		if !e.Valid {
			n++
		}
	}
	return n
}
