package methods

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/GrainArc/TinFlow/Tin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 图层名称
const (
	LayerTriangles = "triangles"
	LayerFlowLines = "flow_lines"
)

// PathSeparator 路径字符串中三角形编号的分隔符
const PathSeparator = "->"

// newCollection 带有具名 crs 成员的要素集合
func newCollection(crs string) *geojson.FeatureCollection {
	if crs == "" {
		crs = Tin.DefaultCRS
	}
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"crs": map[string]interface{}{
			"type":       "name",
			"properties": map[string]interface{}{"name": crs},
		},
	}
	return fc
}

// trianglePolygon 三角形外环，首尾闭合
func trianglePolygon(m *Tin.Mesh, t *Tin.Triangle) orb.Polygon {
	ring := make(orb.Ring, 0, 4)
	for i := 0; i < 3; i++ {
		p := m.Vertex(t, i)
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// centroidLine 两个三角形重心的连线
func centroidLine(m *Tin.Mesh, from, to Tin.TriangleID) orb.LineString {
	x1, y1 := m.Centroid(from)
	x2, y2 := m.Centroid(to)
	return orb.LineString{{x1, y1}, {x2, y2}}
}

// FlowLines 每个有下坡邻居的三角形一条重心连线
func FlowLines(m *Tin.Mesh, crs string) *geojson.FeatureCollection {
	fc := newCollection(crs)
	for i := range m.Triangles {
		t := &m.Triangles[i]
		next, ok := m.Downhill(t.ID)
		if !ok {
			continue
		}
		feature := geojson.NewFeature(centroidLine(m, t.ID, next))
		feature.Properties["from"] = Tin.TriangleKey(t.ID)
		feature.Properties["to"] = Tin.TriangleKey(next)
		feature.Properties["height_from"] = t.Height
		feature.Properties["height_to"] = m.Triangles[next].Height
		fc.Append(feature)
	}
	return fc
}

// FlowNetwork 三角形面（含流径）与每条流径的第一步连线；paths 按三角形编号排列
func FlowNetwork(m *Tin.Mesh, paths []Tin.PathResult, crs string) *geojson.FeatureCollection {
	fc := newCollection(crs)

	for i := range m.Triangles {
		t := &m.Triangles[i]
		res := paths[i]
		sink := 0
		if !res.Reached() {
			sink = 1
		}

		feature := geojson.NewFeature(trianglePolygon(m, t))
		feature.Properties["layer"] = LayerTriangles
		feature.Properties["id"] = Tin.TriangleKey(t.ID)
		feature.Properties["height"] = t.Height
		feature.Properties["sink"] = sink
		feature.Properties["flow_path"] = res.PathString(PathSeparator)
		feature.Properties["outcome"] = res.Outcome.String()
		feature.Properties["neighbor_count"] = len(t.Neighbors)
		fc.Append(feature)
	}

	for i := range m.Triangles {
		res := paths[i]
		if !res.Reached() || len(res.Path) < 2 {
			continue
		}
		from, next := res.Path[0], res.Path[1]

		feature := geojson.NewFeature(centroidLine(m, from, next))
		feature.Properties["layer"] = LayerFlowLines
		feature.Properties["from"] = Tin.TriangleKey(from)
		feature.Properties["to"] = Tin.TriangleKey(next)
		feature.Properties["full_path"] = res.PathString(PathSeparator)
		feature.Properties["height_from"] = m.Triangles[from].Height
		feature.Properties["height_to"] = m.Triangles[next].Height
		fc.Append(feature)
	}
	return fc
}

// AccumulationLayer 三角形面与汇流量；threshold > 0 时 acc 不低于阈值的三角形标记为 stream
func AccumulationLayer(m *Tin.Mesh, acc Tin.Accumulation, threshold float64, crs string) *geojson.FeatureCollection {
	fc := newCollection(crs)
	for i := range m.Triangles {
		t := &m.Triangles[i]
		feature := geojson.NewFeature(trianglePolygon(m, t))
		feature.Properties["id"] = Tin.TriangleKey(t.ID)
		feature.Properties["height"] = t.Height
		feature.Properties["acc"] = acc[i]
		feature.Properties["neighbor_count"] = len(t.Neighbors)
		feature.Properties["stream"] = threshold > 0 && acc[i] >= threshold
		fc.Append(feature)
	}
	return fc
}

// WriteGeoJSON 写出要素集合，自动创建目录
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
