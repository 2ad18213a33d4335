package Transformer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var ErrNoSurveyPoints = errors.New("no survey points found")

// SurveyPoint 测量点，Name 可为空
type SurveyPoint struct {
	Name string
	X    float64
	Y    float64
	Z    float64
}

func splitFields(line string) []string {
	if strings.Contains(line, ",") {
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return strings.Fields(line)
}

func parseFloats(fields []string) ([]float64, bool) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// parseSurveyLine 支持 "x,y,z"、"x y z" 与 "点名,x,y,z"
func parseSurveyLine(line string) (SurveyPoint, bool) {
	fields := splitFields(line)
	if len(fields) < 3 {
		return SurveyPoint{}, false
	}
	if values, ok := parseFloats(fields[:3]); ok {
		return SurveyPoint{X: values[0], Y: values[1], Z: values[2]}, true
	}
	if len(fields) >= 4 {
		if values, ok := parseFloats(fields[1:4]); ok {
			return SurveyPoint{Name: fields[0], X: values[0], Y: values[1], Z: values[2]}, true
		}
	}
	return SurveyPoint{}, false
}

// TxtToSurveyPoints 读取文本测量点文件，# 开头为注释，无法解析的行（表头）跳过
func TxtToSurveyPoints(FilePath string) ([]SurveyPoint, error) {
	data, err := os.ReadFile(FilePath)
	if err != nil {
		return nil, err
	}
	gbk := strings.Contains(detectEncoding(data), "GB")

	var points []SurveyPoint
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if gbk {
			line = GbkToUtf8(line)
		}
		if p, ok := parseSurveyLine(line); ok {
			points = append(points, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSurveyPoints, FilePath)
	}
	return points, nil
}

// TxtToPoints 读取文本测量点文件，返回三维坐标
func TxtToPoints(FilePath string) ([][3]float64, error) {
	survey, err := TxtToSurveyPoints(FilePath)
	if err != nil {
		return nil, err
	}
	return surveyCoords(survey), nil
}

func surveyCoords(survey []SurveyPoint) [][3]float64 {
	points := make([][3]float64, len(survey))
	for i, p := range survey {
		points[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return points
}

// PointsToGeoJSON 测量点转为点要素集合，高程写入属性 z
func PointsToGeoJSON(points [][3]float64) *geojson.FeatureCollection {
	featureCollection := geojson.NewFeatureCollection()
	for i, p := range points {
		feature := geojson.NewFeature(orb.Point{p[0], p[1]})
		feature.Properties["id"] = i
		feature.Properties["z"] = p[2]
		featureCollection.Append(feature)
	}
	return featureCollection
}
