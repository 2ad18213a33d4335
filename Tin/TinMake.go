package Tin

import (
	"errors"
	"math"
)

// ErrTooFewPoints 三角剖分至少需要3个点
var ErrTooFewPoints = errors.New("too few points for triangulation")

// 默认参数与原始流程一致：15米最长边，ETRS-TM35FIN 坐标系
const (
	DefaultMaxEdge       = 15.0
	DefaultCRS           = "EPSG:3067"
	DefaultVerticalScale = 0.2
)

// TriangulateOptions 三角剖分与长边过滤参数
type TriangulateOptions struct {
	MaxEdge       float64
	CRS           string
	VerticalScale float64
	Source        string
}

// DefaultTriangulateOptions 默认参数
func DefaultTriangulateOptions() TriangulateOptions {
	return TriangulateOptions{
		MaxEdge:       DefaultMaxEdge,
		CRS:           DefaultCRS,
		VerticalScale: DefaultVerticalScale,
	}
}

type vertex struct {
	x, y float64
}

type tri struct {
	a, b, c int
}

// 计算三角形外接圆圆心和半径（基于XY平面投影）
func circumcircle(p1, p2, p3 vertex) (cx, cy, r float64) {
	ax, ay := p1.x, p1.y
	bx, by := p2.x, p2.y
	cx1, cy1 := p3.x, p3.y

	d := 2 * (ax*(by-cy1) + bx*(cy1-ay) + cx1*(ay-by))
	if math.Abs(d) < 1e-10 {
		return 0, 0, math.Inf(1)
	}

	ux := (ax*ax+ay*ay)*(by-cy1) + (bx*bx+by*by)*(cy1-ay) + (cx1*cx1+cy1*cy1)*(ay-by)
	uy := (ax*ax+ay*ay)*(cx1-bx) + (bx*bx+by*by)*(ax-cx1) + (cx1*cx1+cy1*cy1)*(bx-ax)

	cx = ux / d
	cy = uy / d
	r = math.Sqrt((cx-ax)*(cx-ax) + (cy-ay)*(cy-ay))

	return cx, cy, r
}

// 判断点是否在三角形外接圆内
func inCircumcircle(p vertex, t tri, vs []vertex) bool {
	cx, cy, r := circumcircle(vs[t.a], vs[t.b], vs[t.c])
	if math.IsInf(r, 1) {
		return false
	}
	dist := math.Sqrt((p.x-cx)*(p.x-cx) + (p.y-cy)*(p.y-cy))
	return dist < r
}

// 创建包含全部点的超级三角形，顶点追加在 vs 末尾
func superTriangle(vs []vertex) ([]vertex, tri) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for _, p := range vs {
		minX = math.Min(minX, p.x)
		maxX = math.Max(maxX, p.x)
		minY = math.Min(minY, p.y)
		maxY = math.Max(maxY, p.y)
	}

	deltaMax := math.Max(maxX-minX, maxY-minY)
	if deltaMax == 0 {
		deltaMax = 1
	}
	midX := (minX + maxX) / 2
	midY := (minY + maxY) / 2

	n := len(vs)
	vs = append(vs,
		vertex{midX - 20*deltaMax, midY - deltaMax},
		vertex{midX, midY + 20*deltaMax},
		vertex{midX + 20*deltaMax, midY - deltaMax},
	)
	return vs, tri{n, n + 1, n + 2}
}

// delaunay Bowyer-Watson 逐点插入，返回只引用原始点的三角形
func delaunay(points [][3]float64) []tri {
	n := len(points)
	vs := make([]vertex, n, n+3)
	for i, p := range points {
		vs[i] = vertex{p[0], p[1]}
	}
	vs, super := superTriangle(vs)
	triangles := []tri{super}

	inserted := make(map[vertex]bool, n)
	for i := 0; i < n; i++ {
		point := vs[i]
		// XY 重复的点不参与剖分
		if inserted[point] {
			continue
		}
		inserted[point] = true

		var bad []tri
		var keep []tri
		for _, t := range triangles {
			if inCircumcircle(point, t, vs) {
				bad = append(bad, t)
			} else {
				keep = append(keep, t)
			}
		}

		// 坏三角形的边中只出现一次的构成空腔边界
		edgeCount := make(map[edgeKey]int)
		var edgeOrder []edgeKey
		for _, t := range bad {
			for _, e := range [3]edgeKey{{t.a, t.b}, {t.b, t.c}, {t.c, t.a}} {
				k := makeEdgeKey(e.a, e.b)
				if edgeCount[k] == 0 {
					edgeOrder = append(edgeOrder, k)
				}
				edgeCount[k]++
			}
		}

		triangles = keep
		for _, e := range edgeOrder {
			if edgeCount[e] == 1 {
				triangles = append(triangles, tri{e.a, e.b, i})
			}
		}
	}

	// 移除包含超级三角形顶点的三角形
	final := make([]tri, 0, len(triangles))
	for _, t := range triangles {
		if t.a < n && t.b < n && t.c < n {
			final = append(final, t)
		}
	}
	return final
}

// 计算两点间水平距离
func distance2D(p1, p2 [3]float64) float64 {
	dx := p1[0] - p2[0]
	dy := p1[1] - p2[1]
	return math.Sqrt(dx*dx + dy*dy)
}

// longestSide 三角形最长水平边
func longestSide(points [][3]float64, t tri) float64 {
	return math.Max(distance2D(points[t.a], points[t.b]),
		math.Max(distance2D(points[t.b], points[t.c]), distance2D(points[t.c], points[t.a])))
}

// Triangulate Delaunay 三角剖分后过滤最长边超过 MaxEdge 的三角形
func Triangulate(points [][3]float64, opts TriangulateOptions) (*RawGeometry, error) {
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}
	if opts.MaxEdge <= 0 {
		opts.MaxEdge = DefaultMaxEdge
	}
	if opts.CRS == "" {
		opts.CRS = DefaultCRS
	}

	all := delaunay(points)

	accepted := make([][3]int, 0, len(all))
	for _, t := range all {
		if longestSide(points, t) <= opts.MaxEdge {
			accepted = append(accepted, [3]int{t.a, t.b, t.c})
		}
	}

	pts := make([][3]float64, len(points))
	copy(pts, points)

	return &RawGeometry{
		Metadata: Metadata{
			PointCount:        len(points),
			OriginalTriangles: len(all),
			FilteredTriangles: len(accepted),
			MaxEdge:           opts.MaxEdge,
			CRS:               opts.CRS,
			VerticalScale:     opts.VerticalScale,
			Source:            opts.Source,
		},
		Points:    pts,
		Triangles: accepted,
	}, nil
}
