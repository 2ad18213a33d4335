package Tin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planeMesh(t *testing.T) *Mesh {
	t.Helper()
	// z = x + 2y
	mesh, err := Enrich(&RawGeometry{
		Points: [][3]float64{
			{0, 0, 0}, {10, 0, 10}, {10, 10, 30}, {0, 10, 20},
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
	})
	require.NoError(t, err)
	return mesh
}

func TestCentroidAndArea(t *testing.T) {
	mesh, err := Enrich(&RawGeometry{
		Points:    [][3]float64{{0, 0, 0}, {3, 0, 0}, {0, 3, 0}},
		Triangles: [][3]int{{0, 1, 2}},
	})
	require.NoError(t, err)

	x, y := mesh.Centroid(0)
	assert.InDelta(t, 1.0, x, 1e-12)
	assert.InDelta(t, 1.0, y, 1e-12)
	assert.InDelta(t, 4.5, mesh.Area(0), 1e-12)

	nx, ny, nz := mesh.Normal(0)
	assert.InDelta(t, 0.0, nx, 1e-12)
	assert.InDelta(t, 0.0, ny, 1e-12)
	assert.InDelta(t, 1.0, nz, 1e-12)
}

func TestElevationAt_InterpolatesPlane(t *testing.T) {
	mesh := planeMesh(t)

	for _, p := range [][2]float64{{2, 1}, {5, 5}, {1, 9}, {10, 10}} {
		z, err := mesh.ElevationAt(p[0], p[1])
		require.NoError(t, err)
		assert.InDelta(t, p[0]+2*p[1], z, 1e-9)
	}

	_, err := mesh.ElevationAt(20, 20)
	assert.True(t, errors.Is(err, ErrOutsideMesh))
}

func TestStats(t *testing.T) {
	s := planeMesh(t).Stats()

	assert.Equal(t, 4, s.Points)
	assert.Equal(t, 2, s.Triangles)
	assert.Equal(t, 2, s.Boundary)
	assert.Equal(t, 0.0, s.MinElevation)
	assert.Equal(t, 30.0, s.MaxElevation)
	assert.InDelta(t, 15.0, s.MeanElevation, 1e-12)
	assert.Greater(t, s.SurfaceArea, 100.0)
}

func TestPolygonFromGeometryString(t *testing.T) {
	poly, err := GeometryStringToPolygon(`{"type":"MultiPolygon","coordinates":[[[[0,0],[10,0],[10,10],[0,0]]]]}`)
	require.NoError(t, err)
	assert.Len(t, poly[0], 4)

	_, err = GeometryStringToPolygon(`{"type":"Point","coordinates":[1,2]}`)
	assert.Error(t, err)

	_, err = GeometryStringToPolygon(`{"type":"Polygon","coordinates":[[[0,0],[1,1]]]}`)
	assert.Error(t, err)
}

func TestCoordsToPoints(t *testing.T) {
	pts, err := CoordsToPoints([][]float64{{1, 2}, {3, 4, 5}})
	require.NoError(t, err)
	assert.Equal(t, [][3]float64{{1, 2, 0}, {3, 4, 5}}, pts)

	_, err = CoordsToPoints([][]float64{{1}})
	assert.Error(t, err)

	_, err = CoordsToPoints(nil)
	assert.Error(t, err)
}
