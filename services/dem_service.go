package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"log"
	"math"
	"sync"

	"github.com/GrainArc/TinFlow/Tin"
	"github.com/GrainArc/TinFlow/Transformer"
	"github.com/GrainArc/TinFlow/models"
	"github.com/GrainArc/TinFlow/pgmvt"
	"github.com/GrainArc/TinFlow/tile_proxy"
	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FlatThreshold 高程变化不超过该值（米）视为平坦地形
const FlatThreshold = 0.5

var ErrNoElevation = errors.New("no elevation samples inside polygon")

// HeightSource 在投影坐标 (x, y) 处给出高程，无数据时返回 false
type HeightSource interface {
	HeightAt(x, y float64) (float64, bool)
}

// resolutionSource 能给出自身像元大小（米）的高程源
type resolutionSource interface {
	ResolutionAt(x, y float64) float64
}

// TileLoader 按瓦片号读取原始瓦片数据，瓦片不存在时返回 (nil, nil)
type TileLoader interface {
	LoadTile(t pgmvt.Tile) ([]byte, error)
}

// TerrainSource terrain-RGB 高程瓦片源（MBTiles 或 XYZ 服务）
type TerrainSource struct {
	loader   TileLoader
	zoom     int64
	toLonLat func(x, y float64) (float64, float64)
	closer   func() error

	mu    sync.Mutex
	tiles map[pgmvt.Tile]image.Image
}

// mbtilesLoader MBTiles 的 tiles 表
type mbtilesLoader struct {
	db  *gorm.DB
	tms bool
}

func (l mbtilesLoader) LoadTile(t pgmvt.Tile) ([]byte, error) {
	row := t.Y
	if l.tms {
		row = t.TMSRow()
	}
	var record models.Tile
	err := l.db.Where("zoom_level = ? AND tile_column = ? AND tile_row = ?", t.Z, t.X, row).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.TileData, nil
}

// OpenMBTiles 打开 MBTiles 文件；zoom 为 0 时使用最大层级
func OpenMBTiles(path string, zoom int64, crs string) (*TerrainSource, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open mbtiles %s: %w", path, err)
	}
	return NewMBTilesSource(db, zoom, crs, true)
}

// NewMBTilesSource 基于已打开的瓦片库创建高程源；tms 表示 tile_row 为 TMS 行号
func NewMBTilesSource(db *gorm.DB, zoom int64, crs string, tms bool) (*TerrainSource, error) {
	if zoom <= 0 {
		// 获取最大层级
		db.Model(&models.Tile{}).Select("MAX(zoom_level)").Scan(&zoom)
	}
	if zoom <= 0 {
		return nil, fmt.Errorf("mbtiles has no tiles")
	}
	src, err := NewTerrainSource(mbtilesLoader{db: db, tms: tms}, zoom, crs)
	if err != nil {
		return nil, err
	}
	src.closer = func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return src, nil
}

// OpenRemoteTiles 以 XYZ 模板（如 https://host/{z}/{x}/{y}.png）在线读取高程瓦片
func OpenRemoteTiles(template string, zoom int64, crs string) (*TerrainSource, error) {
	if zoom <= 0 {
		return nil, fmt.Errorf("remote terrain tiles need an explicit zoom")
	}
	fetcher := tile_proxy.NewFetcher(template)
	src, err := NewTerrainSource(fetcher, zoom, crs)
	if err != nil {
		fetcher.Close()
		return nil, err
	}
	src.closer = fetcher.Close
	return src, nil
}

// NewTerrainSource 由任意瓦片读取器创建高程源
func NewTerrainSource(loader TileLoader, zoom int64, crs string) (*TerrainSource, error) {
	toLonLat, err := Transformer.ProjectionToLonLat(crs)
	if err != nil {
		return nil, err
	}
	return &TerrainSource{
		loader:   loader,
		zoom:     zoom,
		toLonLat: toLonLat,
		tiles:    make(map[pgmvt.Tile]image.Image),
	}, nil
}

// Close 释放瓦片库或下载器
func (s *TerrainSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// ResolutionAt (x, y) 处瓦片像元代表的地面米数
func (s *TerrainSource) ResolutionAt(x, y float64) float64 {
	_, lat := s.toLonLat(x, y)
	return pgmvt.GroundResolution(lat, s.zoom)
}

// tile 读取并缓存解码后的瓦片，缺失瓦片缓存为 nil
func (s *TerrainSource) tile(t pgmvt.Tile) image.Image {
	s.mu.Lock()
	img, ok := s.tiles[t]
	s.mu.Unlock()
	if ok {
		return img
	}

	img = s.load(t)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.tiles[t]; ok {
		return cached
	}
	s.tiles[t] = img
	return img
}

func (s *TerrainSource) load(t pgmvt.Tile) image.Image {
	data, err := s.loader.LoadTile(t)
	if err != nil {
		log.Printf("读取瓦片 %d/%d/%d 失败: %v", t.Z, t.X, t.Y, err)
		return nil
	}
	if data == nil {
		return nil
	}
	img, format, err := decodeImage(data)
	if err != nil {
		log.Printf("图片解码失败（格式：%s）：%v", format, err)
		return nil
	}
	return img
}

// Prefetch 并发读取覆盖投影范围 b 的全部瓦片
func (s *TerrainSource) Prefetch(ctx context.Context, b orb.Bound, workers int) error {
	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, corner := range []orb.Point{b.Min, b.Max, {b.Min[0], b.Max[1]}, {b.Max[0], b.Min[1]}} {
		lon, lat := s.toLonLat(corner[0], corner[1])
		minLon, maxLon = math.Min(minLon, lon), math.Max(maxLon, lon)
		minLat, maxLat = math.Min(minLat, lat), math.Max(maxLat, lat)
	}
	tiles := pgmvt.TilesInBound(minLon, minLat, maxLon, maxLat, s.zoom)
	if workers <= 0 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range tiles {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.tile(t)
			return nil
		})
	}
	return g.Wait()
}

func (s *TerrainSource) HeightAt(x, y float64) (float64, bool) {
	lon, lat := s.toLonLat(x, y)
	t, px, py := pgmvt.LonLatToPixel(lon, lat, s.zoom)
	img := s.tile(t)
	if img == nil {
		return 0, false
	}

	// 瓦片实际尺寸可能是 512
	bounds := img.Bounds()
	ix := bounds.Min.X + px*bounds.Dx()/pgmvt.TileSize
	iy := bounds.Min.Y + py*bounds.Dy()/pgmvt.TileSize

	c := img.At(ix, iy)
	if _, _, _, a := c.RGBA(); a == 0 {
		return 0, false
	}
	r, g, b := getRGB(c)
	return calculateElevation(r, g, b), true
}

// 自动检测并解码图片
func decodeImage(data []byte) (image.Image, string, error) {
	// 先尝试WebP解码（Mapbox常用）
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, "webp", nil
	}

	// 再尝试PNG解码
	if img, format, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, format, nil
	}

	return nil, "unknown", fmt.Errorf("无法识别的图片格式")
}

// 统一获取RGB值
func getRGB(c color.Color) (r, g, b uint8) {
	switch v := c.(type) {
	case color.NRGBA:
		return v.R, v.G, v.B
	case color.RGBA:
		return v.R, v.G, v.B
	default:
		r32, g32, b32, _ := c.RGBA()
		return uint8(r32 >> 8), uint8(g32 >> 8), uint8(b32 >> 8)
	}
}

// 高程计算公式（Mapbox官方算法）
func calculateElevation(r, g, b uint8) float64 {
	// 公式：height = (R * 256² + G * 256 + B) * 0.1 - 10000
	return (float64(r)*65536+float64(g)*256+float64(b))*0.1 - 10000
}

// TinSource 由测量点构建的三角网高程源
type TinSource struct {
	mesh *Tin.Mesh
}

// NewTinSource 对测量点三角剖分，maxEdge 为过滤长边的阈值
func NewTinSource(points [][3]float64, maxEdge float64) (*TinSource, error) {
	raw, err := Tin.Triangulate(points, Tin.TriangulateOptions{MaxEdge: maxEdge, Source: "survey"})
	if err != nil {
		return nil, err
	}
	mesh, err := Tin.Enrich(raw)
	if err != nil {
		return nil, err
	}
	return &TinSource{mesh: mesh}, nil
}

func (s *TinSource) HeightAt(x, y float64) (float64, bool) {
	z, err := s.mesh.ElevationAt(x, y)
	if err != nil {
		return 0, false
	}
	return z, true
}

// SampleOptions 格网采样参数
type SampleOptions struct {
	Step      float64 // 格网间距（米）
	Radius    float64 // 取均值的窗口半径（米）
	PixelSize float64 // 窗口内的采样间距；为 0 时使用高程源的像元大小
}

// SampleResult 格网采样结果
type SampleResult struct {
	Points       [][3]float64 `json:"points"`
	Cells        int          `json:"cells"`
	Skipped      int          `json:"skipped"`
	MaxVariation float64      `json:"max_variation"`
	Flat         bool         `json:"flat"`
}

// SampleGrid 在多边形内按格网采样高程：格网单元完全位于多边形内时，
// 取以单元中心为中心的 (2k+1)² 窗口有效值的均值
func SampleGrid(ctx context.Context, polygon orb.Polygon, src HeightSource, opts SampleOptions) (*SampleResult, error) {
	if opts.Step <= 0 {
		return nil, fmt.Errorf("grid step must be positive")
	}
	if len(polygon) == 0 {
		return nil, fmt.Errorf("polygon is empty")
	}

	bound := polygon.Bound()
	xmin := math.Floor(bound.Min[0]/opts.Step) * opts.Step
	ymin := math.Floor(bound.Min[1]/opts.Step) * opts.Step
	nx := int(math.Round((math.Ceil(bound.Max[0]/opts.Step)*opts.Step - xmin) / opts.Step))
	ny := int(math.Round((math.Ceil(bound.Max[1]/opts.Step)*opts.Step - ymin) / opts.Step))

	result := &SampleResult{}
	half := opts.Step / 2
	for ix := 0; ix <= nx; ix++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x := xmin + float64(ix)*opts.Step
		for iy := 0; iy <= ny; iy++ {
			y := ymin + float64(iy)*opts.Step
			if !squareWithin(polygon, x, y, half) {
				continue
			}
			result.Cells++

			mean, minv, maxv, ok := sampleWindow(src, x, y, opts)
			if !ok {
				result.Skipped++
				continue
			}
			result.Points = append(result.Points, [3]float64{x, y, mean})
			result.MaxVariation = math.Max(result.MaxVariation, maxv-minv)
		}
	}

	log.Printf("格网采样: %d 个单元, %d 个点, 最大高程变化 %.2f m", result.Cells, len(result.Points), result.MaxVariation)
	if len(result.Points) == 0 {
		return result, ErrNoElevation
	}
	result.Flat = result.MaxVariation <= FlatThreshold
	if result.Flat {
		log.Printf("地形平坦（变化 <= %.1f m）", FlatThreshold)
	}
	return result, nil
}

// sampleWindow 窗口内有效高程的均值、最小值、最大值
func sampleWindow(src HeightSource, x, y float64, opts SampleOptions) (mean, minv, maxv float64, ok bool) {
	pixel := opts.PixelSize
	if pixel <= 0 {
		if rs, isRes := src.(resolutionSource); isRes {
			pixel = rs.ResolutionAt(x, y)
		}
	}
	k := 0
	if pixel > 0 {
		k = int(opts.Radius / pixel)
	}

	count := 0
	minv, maxv = math.Inf(1), math.Inf(-1)
	for dx := -k; dx <= k; dx++ {
		for dy := -k; dy <= k; dy++ {
			z, valid := src.HeightAt(x+float64(dx)*pixel, y+float64(dy)*pixel)
			if !valid {
				continue
			}
			mean += z
			minv = math.Min(minv, z)
			maxv = math.Max(maxv, z)
			count++
		}
	}
	if count == 0 {
		return 0, 0, 0, false
	}
	return mean / float64(count), minv, maxv, true
}

// squareWithin 以 (x, y) 为中心、半边长 half 的正方形是否完全位于多边形内
func squareWithin(polygon orb.Polygon, x, y, half float64) bool {
	corners := []orb.Point{
		{x - half, y + half},
		{x + half, y + half},
		{x + half, y - half},
		{x - half, y - half},
	}
	for _, c := range corners {
		if !planar.PolygonContains(polygon, c) {
			return false
		}
	}
	if !planar.PolygonContains(polygon, orb.Point{x, y}) {
		return false
	}

	for _, ring := range polygon {
		for i := 0; i < len(ring); i++ {
			p := ring[i]
			// 多边形顶点落在正方形内部说明边界穿过
			if p[0] > x-half && p[0] < x+half && p[1] > y-half && p[1] < y+half {
				return false
			}
			if i == 0 {
				continue
			}
			for s := 0; s < 4; s++ {
				if segmentsCross(ring[i-1], p, corners[s], corners[(s+1)%4]) {
					return false
				}
			}
		}
	}
	return true
}

func orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// segmentsCross 两线段是否严格相交（不含端点接触与共线）
func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}
