package Tin

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutsideMesh 坐标不在任何三角形内
var ErrOutsideMesh = errors.New("point is not inside any triangle")

// Centroid 三角形的水平重心
func (m *Mesh) Centroid(id TriangleID) (float64, float64) {
	t := &m.Triangles[id]
	var x, y float64
	for i := 0; i < 3; i++ {
		p := m.Vertex(t, i)
		x += p.X
		y += p.Y
	}
	return x / 3.0, y / 3.0
}

// Area 三角形三维面积
func (m *Mesh) Area(id TriangleID) float64 {
	nx, ny, nz := m.cross(id)
	return math.Sqrt(nx*nx+ny*ny+nz*nz) / 2.0
}

// Normal 三角形单位法向量
func (m *Mesh) Normal(id TriangleID) (float64, float64, float64) {
	nx, ny, nz := m.cross(id)
	length := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if length > 0 {
		nx /= length
		ny /= length
		nz /= length
	}
	return nx, ny, nz
}

// cross 两条边向量的叉积
func (m *Mesh) cross(id TriangleID) (float64, float64, float64) {
	t := &m.Triangles[id]
	p1, p2, p3 := m.Vertex(t, 0), m.Vertex(t, 1), m.Vertex(t, 2)

	v1x, v1y, v1z := p2.X-p1.X, p2.Y-p1.Y, p2.Z-p1.Z
	v2x, v2y, v2z := p3.X-p1.X, p3.Y-p1.Y, p3.Z-p1.Z

	return v1y*v2z - v1z*v2y, v1z*v2x - v1x*v2z, v1x*v2y - v1y*v2x
}

// barycentric 重心坐标，三角形退化时 ok 为 false
func barycentric(px, py float64, p1, p2, p3 Point3D) (a, b, c float64, ok bool) {
	denominator := (p2.Y-p3.Y)*(p1.X-p3.X) + (p3.X-p2.X)*(p1.Y-p3.Y)
	if math.Abs(denominator) < 1e-10 {
		return 0, 0, 0, false
	}
	a = ((p2.Y-p3.Y)*(px-p3.X) + (p3.X-p2.X)*(py-p3.Y)) / denominator
	b = ((p3.Y-p1.Y)*(px-p3.X) + (p1.X-p3.X)*(py-p3.Y)) / denominator
	c = 1 - a - b
	return a, b, c, true
}

// ElevationAt 在包含 (x, y) 的三角形内按重心坐标插值高程
func (m *Mesh) ElevationAt(x, y float64) (float64, error) {
	const eps = 1e-12
	for i := range m.Triangles {
		t := &m.Triangles[i]
		p1, p2, p3 := m.Vertex(t, 0), m.Vertex(t, 1), m.Vertex(t, 2)
		a, b, c, ok := barycentric(x, y, p1, p2, p3)
		if !ok {
			continue
		}
		if a >= -eps && b >= -eps && c >= -eps {
			return a*p1.Z + b*p2.Z + c*p3.Z, nil
		}
	}
	return 0, fmt.Errorf("%w: (%.2f, %.2f)", ErrOutsideMesh, x, y)
}

// MeshStats 网格统计
type MeshStats struct {
	Points        int     `json:"points"`
	Triangles     int     `json:"triangles"`
	Boundary      int     `json:"boundary"`
	MinElevation  float64 `json:"min_elevation"`
	MaxElevation  float64 `json:"max_elevation"`
	MeanElevation float64 `json:"mean_elevation"`
	SurfaceArea   float64 `json:"surface_area"`
}

// Stats 高程与面积统计
func (m *Mesh) Stats() MeshStats {
	s := MeshStats{Points: len(m.Points), Triangles: m.Len()}
	if len(m.Points) > 0 {
		s.MinElevation, s.MaxElevation = m.Points[0].Z, m.Points[0].Z
		for _, p := range m.Points {
			s.MinElevation = math.Min(s.MinElevation, p.Z)
			s.MaxElevation = math.Max(s.MaxElevation, p.Z)
			s.MeanElevation += p.Z
		}
		s.MeanElevation /= float64(len(m.Points))
	}
	for i := range m.Triangles {
		if m.Triangles[i].IsBoundary() {
			s.Boundary++
		}
		s.SurfaceArea += m.Area(TriangleID(i))
	}
	return s
}
