package Tin

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownTriangle 三角形编号不在网格内
var ErrUnknownTriangle = errors.New("unknown triangle")

// Outcome 流径追踪的终止方式
type Outcome int

const (
	// BoundarySink 到达边界三角形（邻居少于3个），水流可以离开网格
	BoundarySink Outcome = iota
	// InteriorPit 内部洼地，所有邻居都更高
	InteriorPit
	// CycleDetected 等高三角形互相指向形成环
	CycleDetected
)

func (o Outcome) String() string {
	switch o {
	case BoundarySink:
		return "boundary_sink"
	case InteriorPit:
		return "interior_pit"
	case CycleDetected:
		return "cycle"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// PathResult 一次流径追踪的结果
type PathResult struct {
	Start   TriangleID
	Path    []TriangleID
	Outcome Outcome
}

// Reached 是否找到通往边界的路径；否则即"无路径"（洼地或环）
func (r PathResult) Reached() bool {
	return r.Outcome == BoundarySink
}

// Keys 路径的字符串编号
func (r PathResult) Keys() []string {
	keys := make([]string, len(r.Path))
	for i, id := range r.Path {
		keys[i] = TriangleKey(id)
	}
	return keys
}

// PathString 用分隔符连接路径；无路径时为空串
func (r PathResult) PathString(sep string) string {
	if !r.Reached() {
		return ""
	}
	return strings.Join(r.Keys(), sep)
}

// Downhill 最陡下降邻居：高程不高于当前三角形的邻居中高程最低者，
// 等高时取编号最小者；所有邻居都更高时返回 false
func (m *Mesh) Downhill(id TriangleID) (TriangleID, bool) {
	t, ok := m.Triangle(id)
	if !ok {
		return 0, false
	}

	best := TriangleID(-1)
	bestH := 0.0
	for _, n := range t.Neighbors {
		h := m.Triangles[n].Height
		if h > t.Height {
			continue
		}
		if best < 0 || h < bestH || (h == bestH && n < best) {
			best = n
			bestH = h
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// TracePath 从 start 沿最陡下降方向追踪，直到边界、洼地或环
// 路径长度不会超过三角形总数
func (m *Mesh) TracePath(start TriangleID) (PathResult, error) {
	if _, ok := m.Triangle(start); !ok {
		return PathResult{}, fmt.Errorf("%w: %d", ErrUnknownTriangle, start)
	}

	result := PathResult{Start: start, Path: []TriangleID{start}}
	visited := map[TriangleID]bool{start: true}
	current := start

	for step := 0; step < m.Len(); step++ {
		if m.Triangles[current].IsBoundary() {
			result.Outcome = BoundarySink
			return result, nil
		}

		next, ok := m.Downhill(current)
		if !ok {
			result.Outcome = InteriorPit
			return result, nil
		}
		if visited[next] {
			result.Outcome = CycleDetected
			return result, nil
		}

		visited[next] = true
		result.Path = append(result.Path, next)
		current = next
	}

	// 每一步都加入新三角形，循环结束时必然已经遇到重复
	result.Outcome = CycleDetected
	return result, nil
}

// TraceAll 并发追踪所有三角形，结果按三角形编号排列
func (m *Mesh) TraceAll(workers int) []PathResult {
	results := make([]PathResult, m.Len())
	if workers <= 0 {
		workers = 1
	}

	tasks := make(chan TriangleID, m.Len())
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range tasks {
				// 编号来自网格本身，不会出错
				results[id], _ = m.TracePath(id)
			}
		}()
	}

	for i := range m.Triangles {
		tasks <- TriangleID(i)
	}
	close(tasks)
	wg.Wait()

	return results
}
