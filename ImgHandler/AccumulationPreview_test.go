package ImgHandler

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/GrainArc/TinFlow/Tin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func starMesh(t *testing.T) *Tin.Mesh {
	t.Helper()
	mesh, err := Tin.Enrich(&Tin.RawGeometry{
		Points: [][3]float64{
			{0, 0, 9}, {10, 0, 9}, {5, 8, 9},
			{5, -8, 0}, {12, 8, 3}, {-2, 8, 6},
		},
		Triangles: [][3]int{{0, 1, 2}, {0, 1, 3}, {1, 2, 4}, {2, 0, 5}},
	})
	require.NoError(t, err)
	return mesh
}

func TestAccumulationClasses(t *testing.T) {
	breaks := AccumulationClasses(1000)
	require.Len(t, breaks, len(accumulationRamp))
	assert.InDelta(t, 1.0, breaks[0], 1e-9)
	for i := 1; i < len(breaks); i++ {
		assert.Greater(t, breaks[i], breaks[i-1])
	}
	assert.Less(t, breaks[len(breaks)-1], 1000.0)

	for _, b := range AccumulationClasses(1) {
		assert.Equal(t, 1.0, b)
	}
}

func TestRenderAccumulation(t *testing.T) {
	mesh := starMesh(t)
	acc := mesh.FlowAccumulation()

	data, err := RenderAccumulation(mesh, acc, PreviewOptions{Width: 141})
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	// 范围 14 x 16，比例 10 px/m
	assert.Equal(t, 141, img.Bounds().Dx())
	assert.Equal(t, 161, img.Bounds().Dy())

	r, g, b, _ := img.At(70, 53).RGBA()
	want := accumulationRamp[0]
	assert.Equal(t, [3]uint32{uint32(want.R), uint32(want.G), uint32(want.B)}, [3]uint32{r >> 8, g >> 8, b >> 8}, "t0 keeps a single unit")

	r, g, b, _ = img.At(70, 106).RGBA()
	want = accumulationRamp[len(accumulationRamp)-1]
	assert.Equal(t, [3]uint32{uint32(want.R), uint32(want.G), uint32(want.B)}, [3]uint32{r >> 8, g >> 8, b >> 8}, "t1 holds the maximum")

	r, g, b, _ = img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{255, 255, 255}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestRenderAccumulation_WithLegend(t *testing.T) {
	mesh := starMesh(t)
	data, err := RenderAccumulation(mesh, mesh.FlowAccumulation(), DefaultPreviewOptions())
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dy(), 800*16/14)
}

func TestRenderAccumulation_Errors(t *testing.T) {
	mesh := starMesh(t)
	_, err := RenderAccumulation(mesh, Tin.Accumulation{1}, DefaultPreviewOptions())
	assert.Error(t, err)

	_, err = RenderAccumulation(&Tin.Mesh{}, nil, DefaultPreviewOptions())
	assert.ErrorIs(t, err, ErrEmptyMesh)
}

func TestCreateLegend(t *testing.T) {
	img, err := CreateLegend(legendItems(AccumulationClasses(50)), 300)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, img.Bounds().Dx(), 300)
	assert.Greater(t, img.Bounds().Dy(), 0)
}
