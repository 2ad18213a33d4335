package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/GrainArc/TinFlow/Transformer"
	"github.com/GrainArc/TinFlow/models"
	"github.com/GrainArc/TinFlow/pgmvt"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// terrainTile 单色 terrain-RGB 瓦片，25 m = (1*65536 + 135*256 + 154) * 0.1 - 10000
func terrainTile(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for x := 0; x < 256; x++ {
		for y := 0; y < 256; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 1, G: 135, B: 154, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMBTilesSource_HeightAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.mbtiles")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tile{}))

	lon, lat := 24.9384, 60.1699
	tile, _, _ := pgmvt.LonLatToPixel(lon, lat, 15)
	require.NoError(t, db.Create(&models.Tile{
		ZoomLevel:  15,
		TileColumn: tile.X,
		TileRow:    tile.TMSRow(),
		TileData:   terrainTile(t),
	}).Error)
	sqlDB, _ := db.DB()
	sqlDB.Close()

	src, err := OpenMBTiles(path, 0, "EPSG:3067")
	require.NoError(t, err)
	defer src.Close()

	x, y := Transformer.LonLatToTM35FIN(lon, lat)
	z, ok := src.HeightAt(x, y)
	require.True(t, ok)
	assert.InDelta(t, 25.0, z, 1e-6)

	// 同一瓦片第二次读取走缓存
	z, ok = src.HeightAt(x+0.5, y+0.5)
	assert.True(t, ok)
	assert.InDelta(t, 25.0, z, 1e-6)

	_, ok = src.HeightAt(x+10000, y)
	assert.False(t, ok)

	res := src.ResolutionAt(x, y)
	assert.InDelta(t, 2.376, res, 0.005)
}

func TestRemoteTerrainSource(t *testing.T) {
	lon, lat := 24.9384, 60.1699
	tile, _, _ := pgmvt.LonLatToPixel(lon, lat, 15)
	body := terrainTile(t)
	want := fmt.Sprintf("/15/%d/%d.png", tile.X, tile.Y)

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.URL.Path != want {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	src, err := OpenRemoteTiles(srv.URL+"/{z}/{x}/{y}.png", 15, "EPSG:3067")
	require.NoError(t, err)
	defer src.Close()

	x, y := Transformer.LonLatToTM35FIN(lon, lat)
	z, ok := src.HeightAt(x, y)
	require.True(t, ok)
	assert.InDelta(t, 25.0, z, 1e-6)

	_, ok = src.HeightAt(x+0.5, y+0.5)
	assert.True(t, ok)
	assert.EqualValues(t, 1, atomic.LoadInt32(&requests))

	_, ok = src.HeightAt(x+10000, y)
	assert.False(t, ok)

	// 预取范围内的瓦片只请求一次
	before := atomic.LoadInt32(&requests)
	require.NoError(t, src.Prefetch(context.Background(), orb.Bound{Min: orb.Point{x - 5, y - 5}, Max: orb.Point{x + 5, y + 5}}, 4))
	assert.LessOrEqual(t, atomic.LoadInt32(&requests)-before, int32(4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, src.Prefetch(ctx, orb.Bound{Min: orb.Point{x - 5000, y - 5000}, Max: orb.Point{x + 5000, y + 5000}}, 2))

	_, err = OpenRemoteTiles(srv.URL+"/{z}/{x}/{y}.png", 0, "EPSG:3067")
	assert.Error(t, err)
}

func TestCalculateElevation(t *testing.T) {
	assert.InDelta(t, -10000.0, calculateElevation(0, 0, 0), 1e-9)
	assert.InDelta(t, 25.0, calculateElevation(1, 135, 154), 1e-6)
}

func TestTinSource(t *testing.T) {
	var points [][3]float64
	for x := 0.0; x <= 20; x += 10 {
		for y := 0.0; y <= 20; y += 10 {
			points = append(points, [3]float64{x, y, x + 2*y})
		}
	}
	src, err := NewTinSource(points, surveyMaxEdge)
	require.NoError(t, err)

	z, ok := src.HeightAt(7, 3)
	require.True(t, ok)
	assert.InDelta(t, 13.0, z, 1e-9)

	_, ok = src.HeightAt(30, 30)
	assert.False(t, ok)
}

type planeSource struct {
	missing func(x, y float64) bool
}

func (p planeSource) HeightAt(x, y float64) (float64, bool) {
	if p.missing != nil && p.missing(x, y) {
		return 0, false
	}
	return x, true
}

type flatSource float64

func (f flatSource) HeightAt(x, y float64) (float64, bool) {
	return float64(f), true
}

func square(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func TestSampleGrid_Cells(t *testing.T) {
	polygon := orb.Polygon{square(0, 0, 40, 40)}

	result, err := SampleGrid(context.Background(), polygon, flatSource(3), SampleOptions{Step: 10, Radius: 5, PixelSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 9, result.Cells)
	assert.Len(t, result.Points, 9)
	assert.True(t, result.Flat)
	assert.Equal(t, [3]float64{10, 10, 3}, result.Points[0])
}

func TestSampleGrid_WindowMean(t *testing.T) {
	polygon := orb.Polygon{square(0, 0, 40, 40)}

	result, err := SampleGrid(context.Background(), polygon, planeSource{}, SampleOptions{Step: 10, Radius: 5, PixelSize: 1})
	require.NoError(t, err)
	for _, p := range result.Points {
		assert.InDelta(t, p[0], p[2], 1e-9)
	}
	assert.InDelta(t, 10.0, result.MaxVariation, 1e-9)
	assert.False(t, result.Flat)
}

func TestSampleGrid_HoleAndNoData(t *testing.T) {
	polygon := orb.Polygon{square(0, 0, 40, 40), square(17, 17, 23, 23)}
	src := planeSource{missing: func(x, y float64) bool { return x > 25 && y > 25 }}

	result, err := SampleGrid(context.Background(), polygon, src, SampleOptions{Step: 10})
	require.NoError(t, err)
	assert.Equal(t, 8, result.Cells)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Points, 7)
}

func TestSampleGrid_Errors(t *testing.T) {
	polygon := orb.Polygon{square(0, 0, 40, 40)}

	_, err := SampleGrid(context.Background(), polygon, planeSource{missing: func(x, y float64) bool { return true }}, SampleOptions{Step: 10})
	assert.True(t, errors.Is(err, ErrNoElevation))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = SampleGrid(ctx, polygon, flatSource(1), SampleOptions{Step: 10})
	assert.True(t, errors.Is(err, context.Canceled))

	_, err = SampleGrid(context.Background(), polygon, flatSource(1), SampleOptions{})
	assert.Error(t, err)
}

func TestSquareWithin_Concave(t *testing.T) {
	// U 形：中间缺口 15..25 x 10..40
	polygon := orb.Polygon{{{0, 0}, {40, 0}, {40, 40}, {25, 40}, {25, 10}, {15, 10}, {15, 40}, {0, 40}, {0, 0}}}
	assert.True(t, squareWithin(polygon, 7, 5, 2))
	assert.False(t, squareWithin(polygon, 20, 20, 5))

	// 四角与中心都在多边形内，但窄缝伸入正方形
	slot := orb.Polygon{{{0, 0}, {40, 0}, {40, 40}, {21, 40}, {21, 12}, {19, 12}, {19, 40}, {0, 40}, {0, 0}}}
	assert.False(t, squareWithin(slot, 20, 10, 5))
	assert.True(t, squareWithin(slot, 10, 10, 5))
}
