package methods

import (
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/entity"
)

// dxfLayerColors 各图层颜色，其他图层为白色
var dxfLayerColors = map[string]color.ColorNumber{
	LayerTriangles: color.Green,
	LayerFlowLines: color.Blue,
	"streams":      color.Red,
}

// layerName 要素所在 DXF 图层：优先取 layer 属性，流线标记 stream 的面放入 streams
func layerName(feature *geojson.Feature) string {
	if stream, ok := feature.Properties["stream"].(bool); ok && stream {
		return "streams"
	}
	if name, ok := feature.Properties["layer"].(string); ok && name != "" {
		return name
	}
	return feature.Geometry.GeoJSONType()
}

// ConvertFlowToDXF 将面与线要素写入 DXF，每个图层一个 DXF 图层
func ConvertFlowToDXF(featureCollection *geojson.FeatureCollection, outputFilename string) error {
	d := dxf.NewDrawing()
	d.Header().LtScale = 1.0
	layers := make(map[string]bool)

	for _, feature := range featureCollection.Features {
		var vertices orb.LineString
		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			vertices = orb.LineString(geom[0])
		case orb.LineString:
			vertices = geom
		default:
			log.Printf("Unsupported geometry type: %T", geom)
			continue
		}

		name := layerName(feature)
		if !layers[name] {
			c, ok := dxfLayerColors[name]
			if !ok {
				c = color.White
			}
			if _, err := d.AddLayer(name, c, dxf.DefaultLineType, true); err != nil {
				return err
			}
			layers[name] = true
		}
		if err := d.ChangeLayer(name); err != nil {
			return err
		}

		lwp := entity.NewLwPolyline(len(vertices))
		for j, pt := range vertices {
			lwp.Vertices[j] = []float64{pt[0], pt[1]}
		}
		d.AddEntity(lwp)
	}

	return d.SaveAs(outputFilename)
}
