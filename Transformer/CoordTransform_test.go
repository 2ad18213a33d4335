package Transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTM35FIN_CentralMeridian(t *testing.T) {
	x, y := LonLatToTM35FIN(27, 0)
	assert.InDelta(t, 500000.0, x, 1e-6)
	assert.InDelta(t, 0.0, y, 1e-6)

	x, _ = LonLatToTM35FIN(27, 63)
	assert.InDelta(t, 500000.0, x, 1e-6)
}

func TestTM35FIN_RoundTrip(t *testing.T) {
	for _, p := range [][2]float64{{24.9384, 60.1699}, {21.5, 63.1}, {29.76, 62.6}, {27.0, 69.9}} {
		x, y := LonLatToTM35FIN(p[0], p[1])
		lon, lat := TM35FINToLonLat(x, y)
		assert.InDelta(t, p[0], lon, 1e-6)
		assert.InDelta(t, p[1], lat, 1e-6)
	}
}

func TestProjectionToLonLat(t *testing.T) {
	f, err := ProjectionToLonLat("EPSG:4326")
	require.NoError(t, err)
	lon, lat := f(24, 60)
	assert.Equal(t, 24.0, lon)
	assert.Equal(t, 60.0, lat)

	f, err = ProjectionToLonLat("epsg:3067")
	require.NoError(t, err)
	lon, _ = f(500000, 6700000)
	assert.InDelta(t, 27.0, lon, 1e-9)

	_, err = ProjectionToLonLat("EPSG:4523")
	assert.Error(t, err)
}

func TestTM35FIN_Helsinki(t *testing.T) {
	x, y := LonLatToTM35FIN(24.9384, 60.1699)
	assert.InDelta(t, 385611.3, x, 0.5)
	assert.InDelta(t, 6672118.4, y, 0.5)
}
