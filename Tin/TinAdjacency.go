package Tin

import "sort"

type edgeKey struct {
	a, b int
}

func makeEdgeKey(p1, p2 int) edgeKey {
	if p1 > p2 {
		p1, p2 = p2, p1
	}
	return edgeKey{p1, p2}
}

// sharedVertices 两个三角形共有的顶点数
func sharedVertices(t1, t2 [3]int) int {
	n := 0
	for i, a := range t1 {
		if (i > 0 && t1[0] == a) || (i == 2 && t1[1] == a) {
			continue
		}
		for _, b := range t2 {
			if a == b {
				n++
				break
			}
		}
	}
	return n
}

// BuildAdjacency 三角形下标 -> 恰好共有两个顶点（一条边）的其它三角形下标
// 候选对通过边索引发现，再用顶点计数确认，重复三角形（共3个顶点）不算邻居
func BuildAdjacency(triangles [][3]int) [][]int {
	neighbors := make([][]int, len(triangles))
	if len(triangles) == 0 {
		return neighbors
	}

	edgeMap := make(map[edgeKey][]int, len(triangles)*3/2+1)
	for i, tri := range triangles {
		edges := [3]edgeKey{
			makeEdgeKey(tri[0], tri[1]),
			makeEdgeKey(tri[1], tri[2]),
			makeEdgeKey(tri[2], tri[0]),
		}
		for _, e := range edges {
			edgeMap[e] = append(edgeMap[e], i)
		}
	}

	seen := make(map[edgeKey]bool)
	for _, owners := range edgeMap {
		for x := 0; x < len(owners); x++ {
			for y := x + 1; y < len(owners); y++ {
				i, j := owners[x], owners[y]
				if i == j {
					continue
				}
				pair := makeEdgeKey(i, j)
				if seen[pair] {
					continue
				}
				seen[pair] = true
				if sharedVertices(triangles[i], triangles[j]) != 2 {
					continue
				}
				neighbors[i] = append(neighbors[i], j)
				neighbors[j] = append(neighbors[j], i)
			}
		}
	}

	for i := range neighbors {
		sort.Ints(neighbors[i])
	}
	return neighbors
}
