package footprint

import (
	"sort"

	"github.com/chazu/pointyard/pkg/scene"
	"github.com/paulmach/orb"
)

// loops splits a line set into vertex walks, one per connected component.
// simple is false when any component branches, in which case the walks
// only carry the vertices.
func loops(ls *scene.LineSet) (walks [][]int, simple bool) {
	if len(ls.Lines) == 0 {
		order := make([]int, len(ls.Points))
		for i := range order {
			order[i] = i
		}
		return [][]int{order}, true
	}

	adj := make(map[int][]int)
	var seen []int
	for _, l := range ls.Lines {
		if l[0] == l[1] {
			continue
		}
		for _, v := range l {
			if _, ok := adj[v]; !ok {
				seen = append(seen, v)
			}
		}
		adj[l[0]] = append(adj[l[0]], l[1])
		adj[l[1]] = append(adj[l[1]], l[0])
	}

	simple = true
	visited := make(map[int]bool, len(adj))
	for _, start := range seen {
		if visited[start] {
			continue
		}
		comp := component(adj, start, visited)
		var ends []int
		for _, v := range comp {
			switch d := len(adj[v]); {
			case d == 1:
				ends = append(ends, v)
			case d > 2:
				simple = false
			}
		}
		if !simple || (len(ends) != 0 && len(ends) != 2) {
			simple = false
			walks = append(walks, comp)
			continue
		}
		first := comp[0]
		if len(ends) == 2 {
			first = ends[0]
		}
		walks = append(walks, walk(adj, first, len(comp)))
	}
	return walks, simple
}

// component collects the vertices reachable from start, sorted.
func component(adj map[int][]int, start int, visited map[int]bool) []int {
	stack := []int{start}
	visited[start] = true
	var comp []int
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		comp = append(comp, v)
		for _, n := range adj[v] {
			if !visited[n] {
				visited[n] = true
				stack = append(stack, n)
			}
		}
	}
	sort.Ints(comp)
	return comp
}

// walk follows a path or cycle whose vertices all have degree <= 2.
func walk(adj map[int][]int, first, n int) []int {
	order := make([]int, 0, n)
	prev, cur := -1, first
	for len(order) < n {
		order = append(order, cur)
		next := -1
		for _, c := range adj[cur] {
			if c != prev {
				next = c
				break
			}
		}
		if next < 0 || next == first {
			break
		}
		prev, cur = cur, next
	}
	return order
}

// selfCrossing reports whether two non-adjacent edges of a closed ring
// intersect.
func selfCrossing(r orb.Ring) bool {
	n := len(r) - 1
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsIntersect(r[i], r[i+1], r[j], r[j+1]) {
				return true
			}
		}
	}
	return false
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(p3, p4, p1)) || (d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) || (d4 == 0 && onSegment(p1, p2, p4))
}

func onSegment(a, b, p orb.Point) bool {
	return p[0] >= min(a[0], b[0]) && p[0] <= max(a[0], b[0]) &&
		p[1] >= min(a[1], b[1]) && p[1] <= max(a[1], b[1])
}

// Hull returns the convex hull of pts as a closed counter-clockwise ring,
// using Andrew's monotone chain.
func Hull(pts []orb.Point) orb.Ring {
	ps := make([]orb.Point, len(pts))
	copy(ps, pts)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i][0] != ps[j][0] {
			return ps[i][0] < ps[j][0]
		}
		return ps[i][1] < ps[j][1]
	})
	ps = dedupe(ps)
	if len(ps) < 3 {
		return closeRing(orb.Ring(ps))
	}

	h := make([]orb.Point, 0, 2*len(ps))
	for _, p := range ps {
		for len(h) >= 2 && cross(h[len(h)-2], h[len(h)-1], p) <= 0 {
			h = h[:len(h)-1]
		}
		h = append(h, p)
	}
	lower := len(h) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(h) >= lower && cross(h[len(h)-2], h[len(h)-1], p) <= 0 {
			h = h[:len(h)-1]
		}
		h = append(h, p)
	}
	return orb.Ring(h)
}
