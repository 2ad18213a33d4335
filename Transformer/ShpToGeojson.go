package Transformer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gitee.com/LJ_COOL/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var numericRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// trimTrailingZeros 去掉数值字符串小数部分的尾零
func trimTrailingZeros(input string) string {
	if !numericRegex.MatchString(input) || !strings.Contains(input, ".") {
		return input
	}
	parts := strings.SplitN(input, ".", 2)
	frac := strings.TrimRight(parts[1], "0")
	if frac == "" {
		return parts[0]
	}
	return parts[0] + "." + frac
}

// SplitPoints 按 parts 下标把点集切分成环
func SplitPoints(points []shp.Point, parts []int32) [][]shp.Point {
	var rings [][]shp.Point
	for i, start := range parts {
		end := int32(len(points))
		if i < len(parts)-1 {
			end = parts[i+1]
		}
		rings = append(rings, points[start:end])
	}
	return rings
}

// IsClockwise shapefile 外环为顺时针
func IsClockwise(points []orb.Point) bool {
	sum := 0.0
	for i := 0; i < len(points)-1; i++ {
		p1 := points[i]
		p2 := points[i+1]
		sum += (p2[0] - p1[0]) * (p2[1] + p1[1])
	}
	return sum > 0
}

// readCPGEncoding 读取 CPG 文件获取字符编码，默认 GBK
func readCPGEncoding(shpfilePath string) string {
	cpgPath := strings.TrimSuffix(shpfilePath, filepath.Ext(shpfilePath)) + ".cpg"
	cpgContent, err := os.ReadFile(cpgPath)
	if err != nil {
		return "GBK"
	}
	return strings.ToUpper(strings.TrimSpace(string(cpgContent)))
}

func buildAttributes(n int, shape *shp.Reader, fields []shp.Field, encoding string) map[string]interface{} {
	attrs := make(map[string]interface{})
	for k, f := range fields {
		name, value := f.String(), shape.ReadAttribute(n, k)
		if encoding == "GBK" {
			name, value = GbkToUtf8(name), GbkToUtf8(value)
		}
		attrs[name] = trimTrailingZeros(strings.Trim(value, " \x00"))
	}
	return attrs
}

// polygonFromParts 外环开始一个新面，随后的逆时针环作为它的洞
func polygonFromParts(points []shp.Point, parts []int32) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for _, part := range SplitPoints(points, parts) {
		ring := make(orb.Ring, len(part))
		for j, p := range part {
			ring[j] = orb.Point{p.X, p.Y}
		}
		if IsClockwise(ring) || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
			continue
		}
		last := len(mp) - 1
		mp[last] = append(mp[last], ring)
	}
	return mp
}

// ConvertSHPToGeoJSON 读取 shapefile 中的面要素
func ConvertSHPToGeoJSON(shpfileFilePath string) (*geojson.FeatureCollection, error) {
	shape, err := shp.Open(shpfileFilePath)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", shpfileFilePath, err)
	}
	defer shape.Close()

	fields := shape.Fields()
	encoding := readCPGEncoding(shpfileFilePath)

	fc := geojson.NewFeatureCollection()
	for shape.Next() {
		n, p := shape.Shape()

		var mp orb.MultiPolygon
		switch s := p.(type) {
		case *shp.Polygon:
			mp = polygonFromParts(s.Points, s.Parts)
		case *shp.PolygonZ:
			mp = polygonFromParts(s.Points, s.Parts)
		case *shp.PolygonM:
			mp = polygonFromParts(s.Points, s.Parts)
		default:
			continue
		}

		var geometry orb.Geometry = mp
		if len(mp) == 1 {
			geometry = mp[0]
		}
		feature := geojson.NewFeature(geometry)
		feature.Properties = buildAttributes(n, shape, fields, encoding)
		fc.Append(feature)
	}
	return fc, nil
}
