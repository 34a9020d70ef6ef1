package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p, err := New("utm")
	require.NoError(t, err)
	assert.IsType(t, UTM{}, p)

	p, err = New("Identity")
	require.NoError(t, err)
	assert.IsType(t, Identity{}, p)

	_, err = New("mercator")
	require.ErrorIs(t, err, ErrUnknownProjection)
	assert.Contains(t, err.Error(), "mercator")
}

func TestIdentity_Project(t *testing.T) {
	x, y, err := Identity{}.Project(-21.78, -46.57)
	require.NoError(t, err)
	assert.Equal(t, -21.78, x)
	assert.Equal(t, -46.57, y)
}

func TestUTM_Project(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		easting  float64
		northing float64
	}{
		{name: "equator at greenwich", lat: 0, lon: 0, easting: 166021.443, northing: 0},
		{name: "central meridian", lat: 0, lon: 3, easting: 500000, northing: 0},
		{name: "aachen", lat: 50.77535, lon: 6.08389, easting: 294409, northing: 5628898},
		{name: "southern hemisphere false northing", lat: -0.000001, lon: 3, easting: 500000, northing: 9999999.889},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, err := UTM{}.Project(tt.lat, tt.lon)
			require.NoError(t, err)
			assert.InDelta(t, tt.easting, x, 1)
			assert.InDelta(t, tt.northing, y, 1)
		})
	}
}

func TestUTM_HemisphereSymmetry(t *testing.T) {
	_, north, err := UTM{}.Project(21.78, -46.57)
	require.NoError(t, err)
	_, south, err := UTM{}.Project(-21.78, -46.57)
	require.NoError(t, err)
	assert.InDelta(t, falseNS, north+south, 1e-6)
}

func TestUTM_LatitudeOutOfRange(t *testing.T) {
	for _, lat := range []float64{-80.01, 84.01, 90} {
		_, _, err := UTM{}.Project(lat, 10)
		assert.ErrorIs(t, err, ErrLatitudeOutOfRange, "lat %v", lat)
	}

	_, _, err := UTM{}.Project(84, 10)
	assert.NoError(t, err, "84 is inside the band")
}

func TestUTM_LongitudeOutOfRange(t *testing.T) {
	_, _, err := UTM{}.Project(10, 181)
	assert.Error(t, err)
}

func TestZone(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     int
	}{
		{"greenwich", 51.5, 0, 31},
		{"brazil", -21.78, -46.57, 23},
		{"antimeridian", 0, 180, 60},
		{"west edge", 0, -180, 1},
		{"norway exception", 60, 5, 32},
		{"outside norway band", 55.9, 5, 31},
		{"svalbard 31", 78, 8, 31},
		{"svalbard 33", 78, 10, 33},
		{"svalbard 35", 78, 25, 35},
		{"svalbard 37", 78, 40, 37},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Zone(tt.lat, tt.lon))
		})
	}
}
