package Tin

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry 原始几何无法构成网格
var ErrInvalidGeometry = errors.New("invalid input geometry")

// TriangleHeight 三个顶点高程的算术平均
func TriangleHeight(points [][3]float64, tri [3]int) float64 {
	return (points[tri[0]][2] + points[tri[1]][2] + points[tri[2]][2]) / 3.0
}

// validateGeometry 检查点与三角形引用，任何问题都使整个富化失败
func validateGeometry(raw *RawGeometry) error {
	if raw == nil {
		return fmt.Errorf("%w: geometry is nil", ErrInvalidGeometry)
	}
	if len(raw.Points) == 0 {
		return fmt.Errorf("%w: no points", ErrInvalidGeometry)
	}
	if len(raw.Triangles) == 0 {
		return fmt.Errorf("%w: no triangles", ErrInvalidGeometry)
	}

	for i, p := range raw.Points {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: point %d has non-finite coordinate %v", ErrInvalidGeometry, i, p)
			}
		}
	}

	n := len(raw.Points)
	for i, tri := range raw.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: triangle %d references point %d (have %d points)", ErrInvalidGeometry, i, idx, n)
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return fmt.Errorf("%w: triangle %d repeats a vertex %v", ErrInvalidGeometry, i, tri)
		}
	}
	return nil
}

// Enrich 由原始几何构建富化网格：编号、平均高程、共边邻居，元数据原样保留
func Enrich(raw *RawGeometry) (*Mesh, error) {
	if err := validateGeometry(raw); err != nil {
		return nil, err
	}

	mesh := &Mesh{
		Metadata:  raw.Metadata,
		Points:    make([]Point3D, len(raw.Points)),
		Triangles: make([]Triangle, len(raw.Triangles)),
	}

	for i, p := range raw.Points {
		mesh.Points[i] = Point3D{ID: PointID(i), X: p[0], Y: p[1], Z: p[2]}
	}

	for i, tri := range raw.Triangles {
		mesh.Triangles[i] = Triangle{
			ID:        TriangleID(i),
			Vertices:  [3]PointID{PointID(tri[0]), PointID(tri[1]), PointID(tri[2])},
			Height:    TriangleHeight(raw.Points, tri),
			Neighbors: []TriangleID{},
		}
	}

	for i, neighs := range BuildAdjacency(raw.Triangles) {
		ids := make([]TriangleID, len(neighs))
		for k, n := range neighs {
			ids[k] = TriangleID(n)
		}
		mesh.Triangles[i].Neighbors = ids
	}

	return mesh, nil
}

// Raw 将富化网格还原为原始几何（缓存与重建用）
func (m *Mesh) Raw() *RawGeometry {
	raw := &RawGeometry{
		Metadata:  m.Metadata,
		Points:    make([][3]float64, len(m.Points)),
		Triangles: make([][3]int, len(m.Triangles)),
	}
	for i, p := range m.Points {
		raw.Points[i] = [3]float64{p.X, p.Y, p.Z}
	}
	for i, t := range m.Triangles {
		raw.Triangles[i] = [3]int{int(t.Vertices[0]), int(t.Vertices[1]), int(t.Vertices[2])}
	}
	return raw
}
