package Transformer

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Kml struct {
	XMLName  xml.Name `xml:"kml"`
	Document Document `xml:"Document"`
}

type Document struct {
	Name      string      `xml:"name"`
	Folder    []Folder    `xml:"Folder"`
	Placemark []Placemark `xml:"Placemark"`
}

type Folder struct {
	Name      string      `xml:"name"`
	Placemark []Placemark `xml:"Placemark"`
}

type Placemark struct {
	ID            string         `xml:"id,attr"`
	Name          string         `xml:"name"`
	ExtendedData  ExtendedData   `xml:"ExtendedData"`
	Polygon       *KmlPolygon    `xml:"Polygon"`
	MultiGeometry *MultiGeometry `xml:"MultiGeometry"`
}

type ExtendedData struct {
	SchemaData SchemaData `xml:"SchemaData"`
	Data       []KmlData  `xml:"Data"`
}

type SchemaData struct {
	SimpleData []SimpleData `xml:"SimpleData"`
}

type SimpleData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type KmlData struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

type MultiGeometry struct {
	Polygons []KmlPolygon `xml:"Polygon"`
}

type KmlPolygon struct {
	OuterBoundaryIs boundary   `xml:"outerBoundaryIs"`
	InnerBoundaryIs []boundary `xml:"innerBoundaryIs"`
}

type boundary struct {
	LinearRing struct {
		Coordinates string `xml:"coordinates"`
	} `xml:"LinearRing"`
}

// StringToCoords 解析 "lon,lat[,alt] lon,lat[,alt] ..." 坐标串
func StringToCoords(coords string) orb.Ring {
	var ring orb.Ring
	for _, coord := range strings.Fields(coords) {
		parts := strings.Split(coord, ",")
		if len(parts) < 2 {
			continue
		}
		x, errX := strconv.ParseFloat(parts[0], 64)
		y, errY := strconv.ParseFloat(parts[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		ring = append(ring, orb.Point{x, y})
	}
	return ring
}

func (p KmlPolygon) toOrb() orb.Polygon {
	poly := orb.Polygon{StringToCoords(p.OuterBoundaryIs.LinearRing.Coordinates)}
	for _, inner := range p.InnerBoundaryIs {
		poly = append(poly, StringToCoords(inner.LinearRing.Coordinates))
	}
	return poly
}

func (p Placemark) attributes() map[string]interface{} {
	attrs := make(map[string]interface{})
	for _, f := range p.ExtendedData.SchemaData.SimpleData {
		attrs[f.Name] = strings.TrimSpace(f.Value)
	}
	for _, f := range p.ExtendedData.Data {
		attrs[f.Name] = strings.TrimSpace(f.Value)
	}
	attrs["kml_name"] = p.Name
	if p.ID != "" {
		attrs["kml_id"] = p.ID
	}
	return attrs
}

// KmlToGeojson 读取 KML 中的面要素（Polygon 与 MultiGeometry），坐标为经纬度
func KmlToGeojson(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kml Kml
	if err := xml.Unmarshal(data, &kml); err != nil {
		return nil, fmt.Errorf("parse kml %s: %w", path, err)
	}

	placemarks := kml.Document.Placemark
	for _, folder := range kml.Document.Folder {
		placemarks = append(placemarks, folder.Placemark...)
	}

	fc := geojson.NewFeatureCollection()
	for _, item := range placemarks {
		var geometry orb.Geometry
		switch {
		case item.Polygon != nil:
			geometry = item.Polygon.toOrb()
		case item.MultiGeometry != nil && len(item.MultiGeometry.Polygons) > 0:
			var mp orb.MultiPolygon
			for _, p := range item.MultiGeometry.Polygons {
				mp = append(mp, p.toOrb())
			}
			geometry = mp
		default:
			continue
		}
		feature := geojson.NewFeature(geometry)
		feature.Properties = item.attributes()
		fc.Append(feature)
	}
	return fc, nil
}
