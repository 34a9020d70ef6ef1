package domain

import "errors"

var (
	// ErrNoCoordinates is returned when the source document holds no usable coordinate.
	ErrNoCoordinates = errors.New("no valid coordinates found in input")

	// ErrUnresolvedElevation is returned in strict mode when any point lacks elevation.
	ErrUnresolvedElevation = errors.New("elevation unresolved for one or more points")
)
