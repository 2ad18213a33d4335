package Tin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ringGeometry 中心三角形 t0 被三个外侧三角形包围
func ringGeometry(innerZ, outerZ float64) *RawGeometry {
	return &RawGeometry{
		Metadata: Metadata{CRS: DefaultCRS, Source: "test"},
		Points: [][3]float64{
			{0, 0, innerZ}, {10, 0, innerZ}, {5, 8, innerZ},
			{5, -6, outerZ}, {12, 8, outerZ}, {-2, 8, outerZ},
		},
		Triangles: [][3]int{
			{0, 1, 2},
			{0, 1, 3},
			{1, 2, 4},
			{2, 0, 5},
		},
	}
}

func TestBuildAdjacency_SharedEdgesOnly(t *testing.T) {
	triangles := [][3]int{
		{0, 1, 2},
		{1, 2, 3}, // 与0共边
		{2, 3, 4}, // 与1共边，与0只共一个点
		{5, 6, 7}, // 孤立
	}
	adj := BuildAdjacency(triangles)

	assert.Equal(t, []int{1}, adj[0])
	assert.Equal(t, []int{0, 2}, adj[1])
	assert.Equal(t, []int{1}, adj[2])
	assert.Empty(t, adj[3])
}

func TestBuildAdjacency_DuplicateTriangleIsNotNeighbor(t *testing.T) {
	adj := BuildAdjacency([][3]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 3}})

	assert.Equal(t, []int{2}, adj[0])
	assert.Equal(t, []int{2}, adj[1])
	assert.Equal(t, []int{0, 1}, adj[2])
}

func TestBuildAdjacency_Empty(t *testing.T) {
	assert.Empty(t, BuildAdjacency(nil))
}

func TestEnrich_HeightsAndNeighbors(t *testing.T) {
	raw := ringGeometry(0, 9)
	mesh, err := Enrich(raw)
	require.NoError(t, err)
	require.Equal(t, 4, mesh.Len())
	require.Len(t, mesh.Points, 6)

	assert.Equal(t, raw.Metadata, mesh.Metadata)
	assert.InDelta(t, 0.0, mesh.Triangles[0].Height, 1e-12)
	for i := 1; i < 4; i++ {
		assert.InDelta(t, 3.0, mesh.Triangles[i].Height, 1e-12)
		assert.Equal(t, []TriangleID{0}, mesh.Triangles[i].Neighbors)
		assert.True(t, mesh.Triangles[i].IsBoundary())
	}
	assert.Equal(t, []TriangleID{1, 2, 3}, mesh.Triangles[0].Neighbors)
	assert.False(t, mesh.Triangles[0].IsBoundary())
	assert.Equal(t, [3]PointID{0, 1, 3}, mesh.Triangles[1].Vertices)
}

func TestEnrich_IsDeterministic(t *testing.T) {
	first, err := Enrich(ringGeometry(1.5, 4.25))
	require.NoError(t, err)
	second, err := Enrich(ringGeometry(1.5, 4.25))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEnrich_RejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawGeometry
	}{
		{"nil", nil},
		{"no points", &RawGeometry{Triangles: [][3]int{{0, 1, 2}}}},
		{"no triangles", &RawGeometry{Points: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}},
		{"index out of range", &RawGeometry{
			Points:    [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Triangles: [][3]int{{0, 1, 3}},
		}},
		{"negative index", &RawGeometry{
			Points:    [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Triangles: [][3]int{{-1, 1, 2}},
		}},
		{"repeated vertex", &RawGeometry{
			Points:    [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Triangles: [][3]int{{0, 1, 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, err := Enrich(tt.raw)
			assert.Nil(t, mesh)
			assert.True(t, errors.Is(err, ErrInvalidGeometry), "got %v", err)
		})
	}
}

func TestMeshRaw_RoundTrip(t *testing.T) {
	raw := ringGeometry(2, 7)
	mesh, err := Enrich(raw)
	require.NoError(t, err)

	assert.Equal(t, raw, mesh.Raw())
}

func TestTriangleKeys(t *testing.T) {
	assert.Equal(t, "t12", TriangleKey(12))
	assert.Equal(t, "p3", PointKey(3))

	id, err := ParseTriangleKey("t12")
	require.NoError(t, err)
	assert.Equal(t, TriangleID(12), id)

	id, err = ParseTriangleKey("7")
	require.NoError(t, err)
	assert.Equal(t, TriangleID(7), id)

	_, err = ParseTriangleKey("tx")
	assert.Error(t, err)
}
