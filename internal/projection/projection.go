// Package projection maps geographic coordinates onto the planar X/Y plane
// used by the exporters.
package projection

import (
	"errors"
	"fmt"
	"strings"
)

// Names accepted by New.
const (
	NameUTM      = "utm"
	NameIdentity = "identity"
)

var (
	// ErrUnknownProjection is returned by New for unsupported projection names.
	ErrUnknownProjection = errors.New("unknown projection")
	// ErrLatitudeOutOfRange is returned when a coordinate lies outside the UTM band.
	ErrLatitudeOutOfRange = errors.New("latitude outside UTM range [-80, 84]")
)

// Projector converts a geographic coordinate into planar x, y.
type Projector interface {
	Project(lat, lon float64) (x, y float64, err error)
}

// New returns the projector registered under name.
func New(name string) (Projector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameUTM:
		return UTM{}, nil
	case NameIdentity, "":
		return Identity{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjection, name)
	}
}

// Identity keeps geographic coordinates: x = lat, y = lon.
type Identity struct{}

// Project implements Projector.
func (Identity) Project(lat, lon float64) (float64, float64, error) {
	return lat, lon, nil
}
