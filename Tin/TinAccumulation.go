package Tin

import "sort"

// Accumulation 每个三角形的汇流量，下标为三角形编号
type Accumulation []float64

// Total 汇流量总和
func (a Accumulation) Total() float64 {
	var sum float64
	for _, v := range a {
		sum += v
	}
	return sum
}

// Max 最大汇流量及其三角形
func (a Accumulation) Max() (TriangleID, float64) {
	best := TriangleID(-1)
	var max float64
	for i, v := range a {
		if best < 0 || v > max {
			best = TriangleID(i)
			max = v
		}
	}
	return best, max
}

// ProcessingOrder 汇流计算顺序：高程严格降序，等高时编号小的先处理
func (m *Mesh) ProcessingOrder() []TriangleID {
	order := make([]TriangleID, m.Len())
	for i := range order {
		order[i] = TriangleID(i)
	}
	sort.SliceStable(order, func(i, j int) bool {
		hi, hj := m.Triangles[order[i]].Height, m.Triangles[order[j]].Height
		if hi != hj {
			return hi > hj
		}
		return order[i] < order[j]
	})
	return order
}

// downhillSet 所有高程不高于当前三角形的邻居
func (m *Mesh) downhillSet(t *Triangle) []TriangleID {
	var out []TriangleID
	for _, n := range t.Neighbors {
		if m.Triangles[n].Height <= t.Height {
			out = append(out, n)
		}
	}
	return out
}

// FlowAccumulation 每个三角形先计1，按高程从高到低把当前值平均分给全部下坡邻居
// 没有下坡邻居的三角形保留自身值
func (m *Mesh) FlowAccumulation() Accumulation {
	acc := make(Accumulation, m.Len())
	for i := range acc {
		acc[i] = 1.0
	}

	for _, id := range m.ProcessingOrder() {
		downhill := m.downhillSet(&m.Triangles[id])
		if len(downhill) == 0 {
			continue
		}
		share := acc[id] / float64(len(downhill))
		for _, n := range downhill {
			acc[n] += share
		}
	}

	return acc
}

// TerminalTotal 没有下坡邻居的三角形上的汇流量之和
// 无等高三角形时等于三角形总数：每个单位来源最终都落在某个终点上
func (m *Mesh) TerminalTotal(acc Accumulation) float64 {
	var sum float64
	for i := range m.Triangles {
		if len(m.downhillSet(&m.Triangles[i])) == 0 {
			sum += acc[i]
		}
	}
	return sum
}
