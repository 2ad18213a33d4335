package Tin

import (
	"fmt"
	"strconv"
	"strings"
)

// PointID 点在网格内的编号，等于输入列表中的下标
type PointID int

// TriangleID 三角形在网格内的编号，等于输入列表中的下标
type TriangleID int

// Point3D 表示一个三维点
type Point3D struct {
	ID      PointID `json:"id"`
	X, Y, Z float64
}

// Triangle 富化后的三角形：顶点、平均高程与共边邻居
type Triangle struct {
	ID        TriangleID   `json:"id"`
	Vertices  [3]PointID   `json:"vertices"`
	Height    float64      `json:"height"`
	Neighbors []TriangleID `json:"neighbors"`
}

// IsBoundary 邻居少于3个的三角形至少有一条边位于网格外边界
func (t *Triangle) IsBoundary() bool {
	return len(t.Neighbors) < 3
}

// Metadata 原始三角网的来源信息，富化时原样传递
type Metadata struct {
	PointCount        int     `json:"point_count"`
	OriginalTriangles int     `json:"original_triangles"`
	FilteredTriangles int     `json:"filtered_triangles"`
	MaxEdge           float64 `json:"max_edge_m"`
	CRS               string  `json:"crs"`
	VerticalScale     float64 `json:"vertical_scale"`
	Source            string  `json:"source,omitempty"`
}

// RawGeometry 上游三角剖分交付的原始几何：点列表 + 三角形顶点下标
type RawGeometry struct {
	Metadata  Metadata     `json:"metadata"`
	Points    [][3]float64 `json:"points"`
	Triangles [][3]int     `json:"triangles"`
}

// Mesh 富化后的三角网，构建完成后只读
type Mesh struct {
	Metadata  Metadata   `json:"metadata"`
	Points    []Point3D  `json:"points"`
	Triangles []Triangle `json:"triangles"`
}

// Len 三角形数量
func (m *Mesh) Len() int {
	return len(m.Triangles)
}

// Triangle 按编号取三角形
func (m *Mesh) Triangle(id TriangleID) (*Triangle, bool) {
	if id < 0 || int(id) >= len(m.Triangles) {
		return nil, false
	}
	return &m.Triangles[id], true
}

// Vertex 三角形第i个顶点
func (m *Mesh) Vertex(t *Triangle, i int) Point3D {
	return m.Points[t.Vertices[i]]
}

// PointKey 外部格式使用的点字符串编号
func PointKey(id PointID) string {
	return "p" + strconv.Itoa(int(id))
}

// TriangleKey 外部格式使用的三角形字符串编号
func TriangleKey(id TriangleID) string {
	return "t" + strconv.Itoa(int(id))
}

// ParseTriangleKey 解析 "t12" 或 "12"
func ParseTriangleKey(key string) (TriangleID, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(key), "t"))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid triangle key %q", key)
	}
	return TriangleID(n), nil
}
