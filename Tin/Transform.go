package Tin

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CoordsToPoints 将 [[x,y,z],...] 坐标数组转换为三维点，缺少Z时按0处理
func CoordsToPoints(coords [][]float64) ([][3]float64, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("coords is empty")
	}

	points := make([][3]float64, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate at index %d has insufficient dimensions (need at least 2, got %d)", i, len(coord))
		}
		for _, v := range coord {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("invalid coordinate at index %d: %v", i, coord)
			}
		}

		points[i] = [3]float64{coord[0], coord[1], 0}
		if len(coord) >= 3 {
			points[i][2] = coord[2]
		}
	}

	return points, nil
}

// PolygonFromGeometry 取 Polygon 本身或 MultiPolygon 的第一个多边形
func PolygonFromGeometry(g orb.Geometry) (orb.Polygon, error) {
	switch geom := g.(type) {
	case orb.Polygon:
		return checkPolygon(geom)
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return nil, fmt.Errorf("multipolygon has no polygons")
		}
		return checkPolygon(geom[0])
	case nil:
		return nil, fmt.Errorf("geometry is empty")
	default:
		return nil, fmt.Errorf("unsupported geometry type: %s (only Polygon and MultiPolygon are supported)", g.GeoJSONType())
	}
}

func checkPolygon(p orb.Polygon) (orb.Polygon, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("polygon has no rings")
	}
	if len(p[0]) < 3 {
		return nil, fmt.Errorf("polygon outer ring must have at least 3 points")
	}
	return p, nil
}

// GeometryStringToPolygon 将GeoJSON Geometry字符串转换为多边形
func GeometryStringToPolygon(geometryStr string) (orb.Polygon, error) {
	geom, err := geojson.UnmarshalGeometry([]byte(geometryStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse geometry JSON: %v", err)
	}
	return PolygonFromGeometry(geom.Geometry())
}
