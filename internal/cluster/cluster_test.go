package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/kml2dxf/internal/domain"
)

func TestAssign_ZeroEpsIsIdentity(t *testing.T) {
	coords := []domain.Coordinate{
		{Lat: -21.78, Lon: -46.57},
		{Lat: -21.78, Lon: -46.57},
		{Lat: -21.79, Lon: -46.58},
	}

	a := Assign(coords, 0)
	assert.Equal(t, domain.IdentityAssignment(3), a)
}

func TestAssign_SinglePoint(t *testing.T) {
	a := Assign([]domain.Coordinate{{Lat: 1, Lon: 1}}, 0.5)
	assert.Equal(t, []int{0}, a.Labels)
	assert.Equal(t, []int{0}, a.Representatives)
}

func TestAssign_Empty(t *testing.T) {
	a := Assign(nil, 0.5)
	assert.Empty(t, a.Labels)
	assert.Zero(t, a.Clusters())
}

func TestAssign_ChainLinksDistantEnds(t *testing.T) {
	// 0-1 and 1-2 are within eps but 0-2 is not; single linkage still joins them.
	coords := []domain.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.009},
		{Lat: 0, Lon: 0.018},
		{Lat: 5, Lon: 5},
	}

	a := Assign(coords, 0.01)
	assert.Equal(t, []int{0, 0, 0, 1}, a.Labels)
	assert.Equal(t, []int{0, 3}, a.Representatives)
}

func TestAssign_FirstOccurrenceOrder(t *testing.T) {
	coords := []domain.Coordinate{
		{Lat: 10, Lon: 10}, // cluster 0
		{Lat: 20, Lon: 20}, // cluster 1
		{Lat: 10.001, Lon: 10},
		{Lat: 30, Lon: 30}, // cluster 2
		{Lat: 20, Lon: 20.001},
	}

	a := Assign(coords, 0.01)
	assert.Equal(t, []int{0, 1, 0, 2, 1}, a.Labels)
	assert.Equal(t, []int{0, 1, 3}, a.Representatives)
	assert.Equal(t, 1, a.Representative(4))
}

func TestAssign_LargeEpsMergesAll(t *testing.T) {
	coords := []domain.Coordinate{
		{Lat: -21.78, Lon: -46.57},
		{Lat: -21.79, Lon: -46.58},
		{Lat: -22.5, Lon: -47.1},
	}

	a := Assign(coords, 10)
	require.Equal(t, 1, a.Clusters())
	assert.Equal(t, []int{0, 0, 0}, a.Labels)
	assert.Equal(t, []domain.Coordinate{coords[0]}, Representatives(coords, a))
}

func TestAssign_CoincidentPoints(t *testing.T) {
	coords := make([]domain.Coordinate, 50)
	for i := range coords {
		coords[i] = domain.Coordinate{Lat: 1, Lon: 1}
	}

	a := Assign(coords, 1e-6)
	assert.Equal(t, 1, a.Clusters())
}

func TestAssign_Invariants(t *testing.T) {
	coords := []domain.Coordinate{
		{Lat: 0, Lon: 0}, {Lat: 0.5, Lon: 0.5}, {Lat: 0.52, Lon: 0.5},
		{Lat: 3, Lon: 3}, {Lat: 0.01, Lon: 0}, {Lat: 3.05, Lon: 3},
	}

	a := Assign(coords, 0.1)
	require.Len(t, a.Labels, len(coords))
	for l, rep := range a.Representatives {
		assert.Equal(t, l, a.Labels[rep], "representative must belong to its own cluster")
	}
	for i, l := range a.Labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, a.Clusters())
		assert.LessOrEqual(t, a.Representatives[l], i, "representative is the first member")
	}
}

func TestAssign_DenseClusterScales(t *testing.T) {
	// 200 x 100 grid, 0.001 degree spacing: every point links to its grid neighbours.
	coords := make([]domain.Coordinate, 0, 20000)
	for r := 0; r < 200; r++ {
		for c := 0; c < 100; c++ {
			coords = append(coords, domain.Coordinate{Lat: float64(r) * 0.001, Lon: float64(c) * 0.001})
		}
	}

	start := time.Now()
	a := Assign(coords, 0.0015)
	elapsed := time.Since(start)

	assert.Equal(t, 1, a.Clusters())
	assert.Equal(t, []int{0}, a.Representatives)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestAssign_ManyCoincidentPointsScale(t *testing.T) {
	coords := make([]domain.Coordinate, 40000)
	for i := range coords {
		coords[i] = domain.Coordinate{Lat: -21.78, Lon: -46.57}
	}

	start := time.Now()
	a := Assign(coords, 1e-6)
	elapsed := time.Since(start)

	assert.Equal(t, 1, a.Clusters())
	assert.Equal(t, []int{0}, a.Representatives)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestAssign_CoincidentPointsJoinDistinctNeighbours(t *testing.T) {
	coords := []domain.Coordinate{
		{Lat: 5, Lon: 5},
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.001},
		{Lat: 5, Lon: 5},
	}

	a := Assign(coords, 0.002)
	assert.Equal(t, []int{0, 1, 1, 1, 0}, a.Labels)
	assert.Equal(t, []int{0, 1}, a.Representatives)
}
