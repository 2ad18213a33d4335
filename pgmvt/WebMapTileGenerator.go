package pgmvt

import (
	"math"
)

const HEMI_MAP_WIDTH = math.Pi * float64(6378137)

// TileSize terrain-RGB 瓦片的默认像素尺寸
const TileSize = 256

// Tile XYZ 瓦片编号
type Tile struct {
	Z int64
	X int64
	Y int64
}

// TMSRow MBTiles 使用 TMS 行号，y 轴自下而上
func (t Tile) TMSRow() int64 {
	return (int64(1) << uint(t.Z)) - 1 - t.Y
}

func pixelToLatLon(px, py float64, z int64) [2]float64 {
	// 将像素坐标转换为经纬度
	mapSize := float64(TileSize) * math.Exp2(float64(z))
	lonDeg := px/mapSize*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*py/mapSize)))
	return [2]float64{lonDeg, latRad * 180.0 / math.Pi}
}

// TileToLatLon 瓦片四角经纬度
func TileToLatLon(z, x, y int64) (topLeft, topRight, bottomLeft, bottomRight [2]float64) {
	left := float64(x * TileSize)
	top := float64(y * TileSize)
	right := float64((x + 1) * TileSize)
	bottom := float64((y + 1) * TileSize)
	topLeft = pixelToLatLon(left, top, z)
	topRight = pixelToLatLon(right, top, z)
	bottomLeft = pixelToLatLon(left, bottom, z)
	bottomRight = pixelToLatLon(right, bottom, z)
	return topLeft, topRight, bottomLeft, bottomRight
}

// lonLatToWorldPixel 经纬度转为 zoom 级全局像素坐标（可含小数）
func lonLatToWorldPixel(lon, lat float64, zoom int64) (float64, float64) {
	mercX, mercY := Epsg4326ToEpsg3857(lon, lat)
	resolution := 2 * HEMI_MAP_WIDTH / (math.Exp2(float64(zoom)) * TileSize)
	return (mercX + HEMI_MAP_WIDTH) / resolution, (HEMI_MAP_WIDTH - mercY) / resolution
}

// LonLatToTile 经纬度所在瓦片
func LonLatToTile(lon, lat float64, zoom int64) (x, y int64) {
	t, _, _ := LonLatToPixel(lon, lat, zoom)
	return t.X, t.Y
}

// LonLatToPixel 经纬度所在瓦片及瓦片内像素位置
func LonLatToPixel(lon, lat float64, zoom int64) (t Tile, px, py int) {
	wx, wy := lonLatToWorldPixel(lon, lat, zoom)

	// 处理边界情况
	maxPixel := math.Exp2(float64(zoom))*TileSize - 1
	wx = math.Max(0, math.Min(maxPixel, wx))
	wy = math.Max(0, math.Min(maxPixel, wy))

	t = Tile{Z: zoom, X: int64(wx) / TileSize, Y: int64(wy) / TileSize}
	return t, int(wx) % TileSize, int(wy) % TileSize
}

// GroundResolution zoom 级在纬度 lat 处每像素代表的地面米数
func GroundResolution(lat float64, zoom int64) float64 {
	return math.Cos(lat*math.Pi/180) * 2 * HEMI_MAP_WIDTH / (math.Exp2(float64(zoom)) * TileSize)
}

// XyzLonLat 瓦片左上角经纬度
func XyzLonLat(x float64, y float64, z float64) []float64 {
	n := math.Pow(2, z)
	LonDeg := (x/n)*360.0 - 180.0
	LatRad := math.Atan(math.Sinh(math.Pi * (1 - (2*y)/n)))
	LatDeg := (180 * LatRad) / math.Pi
	return []float64{LonDeg, LatDeg}
}

// Epsg4326ToEpsg3857 经纬度转 Web 墨卡托
func Epsg4326ToEpsg3857(lon float64, lat float64) (float64, float64) {
	semimajorAxis := 6378137.0
	x := semimajorAxis * (math.Pi / 180) * lon
	y := semimajorAxis * math.Log(math.Tan((math.Pi/4)+((math.Pi/180)*lat/2)))
	return x, y
}

// Epsg3857ToEpsg4326 Web 墨卡托转经纬度
func Epsg3857ToEpsg4326(x float64, y float64) (float64, float64) {
	rMajor := 6378137.0
	lon := x / rMajor * 180.0 / math.Pi
	lat := math.Atan(math.Exp(y/rMajor))*360.0/math.Pi - 90.0
	return lon, lat
}

// TilesInBound 覆盖经纬度范围的全部 zoom 级瓦片
func TilesInBound(minLon, minLat, maxLon, maxLat float64, zoom int64) []Tile {
	x0, y0 := LonLatToTile(minLon, maxLat, zoom)
	x1, y1 := LonLatToTile(maxLon, minLat, zoom)

	tiles := make([]Tile, 0, (x1-x0+1)*(y1-y0+1))
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			tiles = append(tiles, Tile{Z: zoom, X: x, Y: y})
		}
	}
	return tiles
}
