package Transformer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

var ErrUnsupportedParcelFile = errors.New("unsupported parcel file")

// LoadParcelFile 读取本地地块边界（GeoJSON、KML 或 shapefile），经纬度坐标转换到 crs
func LoadParcelFile(path, crs string) (*geojson.FeatureCollection, error) {
	var (
		fc  *geojson.FeatureCollection
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			fc, err = geojson.UnmarshalFeatureCollection(data)
		}
	case ".kml":
		fc, err = KmlToGeojson(path)
	case ".shp":
		fc, err = ConvertSHPToGeoJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedParcelFile, path)
	}
	if err != nil {
		return nil, err
	}

	if isGeographic(fc) {
		toProj, err := LonLatToProjection(crs)
		if err != nil {
			return nil, err
		}
		proj := func(p orb.Point) orb.Point {
			x, y := toProj(p[0], p[1])
			return orb.Point{x, y}
		}
		for _, f := range fc.Features {
			f.Geometry = project.Geometry(f.Geometry, proj)
		}
	}
	return fc, nil
}

// isGeographic 坐标全部落在经纬度范围内
func isGeographic(fc *geojson.FeatureCollection) bool {
	if len(fc.Features) == 0 {
		return false
	}
	var b orb.Bound
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		if i == 0 {
			b = f.Geometry.Bound()
		} else {
			b = b.Union(f.Geometry.Bound())
		}
	}
	return b.Min[0] >= -180 && b.Max[0] <= 180 && b.Min[1] >= -90 && b.Max[1] <= 90
}
