package projection

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid and UTM scale factor.
const (
	k0      = 0.9996
	radius  = 6378137.0
	eccSq   = 0.00669438
	falseE  = 500000.0
	falseNS = 10000000.0

	minLat  = -80.0
	maxLat  = 84.0
	maxLon  = 180.0
	zoneDeg = 6.0
)

var (
	eccSq2 = eccSq * eccSq
	eccSq3 = eccSq2 * eccSq
	eccPSq = eccSq / (1 - eccSq)
	merid1 = 1 - eccSq/4 - 3*eccSq2/64 - 5*eccSq3/256
	merid2 = 3*eccSq/8 + 3*eccSq2/32 + 45*eccSq3/1024
	merid3 = 15*eccSq2/256 + 45*eccSq3/1024
	merid4 = 35 * eccSq3 / 3072
)

// UTM projects onto the Universal Transverse Mercator grid. The zone comes
// from the longitude, with the Norway and Svalbard exceptions; southern
// latitudes get the 10,000 km false northing.
type UTM struct{}

// Project implements Projector, returning easting and northing in meters.
func (UTM) Project(lat, lon float64) (float64, float64, error) {
	if lat < minLat || lat > maxLat || math.IsNaN(lat) {
		return 0, 0, fmt.Errorf("%w: %v", ErrLatitudeOutOfRange, lat)
	}
	if lon < -maxLon || lon > maxLon || math.IsNaN(lon) {
		return 0, 0, fmt.Errorf("longitude %v outside [-180, 180]", lon)
	}

	zone := Zone(lat, lon)
	centralLon := float64(zone-1)*zoneDeg - 180 + zoneDeg/2

	latRad := lat * math.Pi / 180
	sinLat, cosLat := math.Sincos(latRad)
	tanLat := sinLat / cosLat
	tan2 := tanLat * tanLat
	tan4 := tan2 * tan2

	n := radius / math.Sqrt(1-eccSq*sinLat*sinLat)
	c := eccPSq * cosLat * cosLat

	a := cosLat * normalizeAngle((lon-centralLon)*math.Pi/180)
	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	m := radius * (merid1*latRad -
		merid2*math.Sin(2*latRad) +
		merid3*math.Sin(4*latRad) -
		merid4*math.Sin(6*latRad))

	easting := k0*n*(a+
		a3/6*(1-tan2+c)+
		a5/120*(5-18*tan2+tan4+72*c-58*eccPSq)) + falseE

	northing := k0 * (m + n*tanLat*(a2/2+
		a4/24*(5-tan2+9*c+4*c*c)+
		a6/720*(61-58*tan2+tan4+600*c-330*eccPSq)))
	if lat < 0 {
		northing += falseNS
	}

	return easting, northing, nil
}

// Zone returns the UTM zone number for a coordinate.
func Zone(lat, lon float64) int {
	if lat >= 56 && lat < 64 && lon >= 3 && lon < 12 {
		return 32
	}
	if lat >= 72 && lat <= 84 && lon >= 0 {
		switch {
		case lon < 9:
			return 31
		case lon < 21:
			return 33
		case lon < 33:
			return 35
		case lon < 42:
			return 37
		}
	}
	if lon >= maxLon {
		return 60
	}
	return int((lon+180)/zoneDeg) + 1
}

func normalizeAngle(rad float64) float64 {
	return math.Mod(rad+math.Pi, 2*math.Pi) - math.Pi
}
