package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKnownFixture(t *testing.T) {
	d := Distance(0, 0, 0, 1)
	assert.InDelta(t, 111195, d, 50)
}

func TestDistanceSamePointIsZero(t *testing.T) {
	points := []Point{
		{0, 0},
		{40.0, -75.0},
		{-33.8688, 151.2093},
		{89.9999, 179.9999},
	}
	for _, p := range points {
		assert.InDelta(t, 0, Distance(p.Latitude, p.Longitude, p.Latitude, p.Longitude), 1e-9)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	pairs := [][2]Point{
		{{40.0, -75.0}, {40.001, -75.001}},
		{{51.5074, -0.1278}, {48.8566, 2.3522}},
		{{-33.8688, 151.2093}, {35.6762, 139.6503}},
		{{0, 179.9}, {0, -179.9}},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		assert.InDelta(t, a.DistanceTo(b), b.DistanceTo(a), 1e-6)
	}
}

func TestDistanceAntipodalStaysFinite(t *testing.T) {
	d := Distance(0, 0, 0, 180)
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*EarthRadius, d, 1)
}

func TestDistanceLondonParis(t *testing.T) {
	// Roughly 343.5 km between the two city centres.
	d := Distance(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 343_500, d, 1_000)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{40, -75}.Valid())
	assert.False(t, Point{91, 0}.Valid())
	assert.False(t, Point{0, -181}.Valid())
	assert.False(t, Point{math.NaN(), 0}.Valid())
}
