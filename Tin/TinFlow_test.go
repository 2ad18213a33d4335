package Tin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphMesh 只有高程和邻接关系的网格，用于构造几何上难以摆出的情形
func graphMesh(heights []float64, adj [][]int) *Mesh {
	m := &Mesh{Triangles: make([]Triangle, len(heights))}
	for i, h := range heights {
		neighs := make([]TriangleID, len(adj[i]))
		for k, n := range adj[i] {
			neighs[k] = TriangleID(n)
		}
		m.Triangles[i] = Triangle{ID: TriangleID(i), Height: h, Neighbors: neighs}
	}
	return m
}

// walledChain A(10) -> B(5) -> C(0)；A 和 B 各有两个更高的"墙"邻居使其成为内部三角形
func walledChain() *Mesh {
	return graphMesh(
		[]float64{10, 5, 0, 50, 50, 50, 50},
		[][]int{
			{1, 3, 4},
			{0, 2, 5},
			{1, 6},
			{0}, {0}, {1}, {2},
		},
	)
}

func TestDownhill_PicksLowestNotHigher(t *testing.T) {
	m := graphMesh(
		[]float64{5, 7, 3, 4},
		[][]int{{1, 2, 3}, {0}, {0}, {0}},
	)
	next, ok := m.Downhill(0)
	require.True(t, ok)
	assert.Equal(t, TriangleID(2), next)
}

func TestDownhill_FlatStepAllowed(t *testing.T) {
	m := graphMesh([]float64{5, 5, 9}, [][]int{{1, 2}, {0}, {0}})
	next, ok := m.Downhill(0)
	require.True(t, ok)
	assert.Equal(t, TriangleID(1), next)
}

func TestDownhill_TieBreaksOnLowestID(t *testing.T) {
	m := graphMesh(
		[]float64{5, 2, 2, 2},
		[][]int{{3, 2, 1}, {0}, {0}, {0}},
	)
	next, ok := m.Downhill(0)
	require.True(t, ok)
	assert.Equal(t, TriangleID(1), next)
}

func TestDownhill_NoSelectionWhenAllHigher(t *testing.T) {
	m := graphMesh([]float64{1, 2, 3, 4}, [][]int{{1, 2, 3}, {0}, {0}, {0}})
	_, ok := m.Downhill(0)
	assert.False(t, ok)

	_, ok = m.Downhill(99)
	assert.False(t, ok)
}

func TestTracePath_Chain(t *testing.T) {
	m := walledChain()
	res, err := m.TracePath(0)
	require.NoError(t, err)

	assert.Equal(t, []TriangleID{0, 1, 2}, res.Path)
	assert.Equal(t, BoundarySink, res.Outcome)
	assert.True(t, res.Reached())
	assert.Equal(t, "t0->t1->t2", res.PathString("->"))
}

func TestTracePath_SingleTriangle(t *testing.T) {
	mesh, err := Enrich(&RawGeometry{
		Points:    [][3]float64{{0, 0, 1}, {1, 0, 2}, {0, 1, 3}},
		Triangles: [][3]int{{0, 1, 2}},
	})
	require.NoError(t, err)

	res, err := mesh.TracePath(0)
	require.NoError(t, err)
	assert.Equal(t, []TriangleID{0}, res.Path)
	assert.True(t, res.Reached())
}

func TestTracePath_InteriorPit(t *testing.T) {
	mesh, err := Enrich(ringGeometry(0, 9))
	require.NoError(t, err)

	res, err := mesh.TracePath(0)
	require.NoError(t, err)
	assert.Equal(t, InteriorPit, res.Outcome)
	assert.False(t, res.Reached())
	assert.Equal(t, "", res.PathString("->"))

	// 外侧三角形只有一个邻居，本身就是边界终点
	res, err = mesh.TracePath(2)
	require.NoError(t, err)
	assert.Equal(t, []TriangleID{2}, res.Path)
	assert.Equal(t, BoundarySink, res.Outcome)
}

func TestTracePath_EqualPairWithOneNeighborEachIsBoundary(t *testing.T) {
	m := graphMesh([]float64{4, 4}, [][]int{{1}, {0}})

	for _, start := range []TriangleID{0, 1} {
		res, err := m.TracePath(start)
		require.NoError(t, err)
		assert.Equal(t, []TriangleID{start}, res.Path)
		assert.Equal(t, BoundarySink, res.Outcome)
	}
}

func TestTracePath_CycleGuard(t *testing.T) {
	// A 与 B 等高且各有三个邻居，互为最陡下降方向
	m := graphMesh(
		[]float64{5, 5, 9, 9, 9, 9},
		[][]int{
			{1, 2, 3},
			{0, 4, 5},
			{0}, {0}, {1}, {1},
		},
	)

	res, err := m.TracePath(0)
	require.NoError(t, err)
	assert.Equal(t, CycleDetected, res.Outcome)
	assert.Equal(t, []TriangleID{0, 1}, res.Path)
	assert.False(t, res.Reached())
}

func TestTracePath_UnknownTriangle(t *testing.T) {
	_, err := walledChain().TracePath(42)
	assert.True(t, errors.Is(err, ErrUnknownTriangle))
}

func TestTraceAll_MatchesTracePath(t *testing.T) {
	m := walledChain()
	all := m.TraceAll(3)
	require.Len(t, all, m.Len())

	for i := range m.Triangles {
		single, err := m.TracePath(TriangleID(i))
		require.NoError(t, err)
		assert.Equal(t, single, all[i])
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "boundary_sink", BoundarySink.String())
	assert.Equal(t, "interior_pit", InteriorPit.String())
	assert.Equal(t, "cycle", CycleDetected.String())
}
