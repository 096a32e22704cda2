package ai

import (
	"container/heap"
	"context"
)

// Passability reports whether a tile can be stepped on.
type Passability interface {
	Passable(p Point) bool
}

// PassFunc adapts a function to Passability.
type PassFunc func(p Point) bool

func (f PassFunc) Passable(p Point) bool { return f(p) }

type pathNode struct {
	pt     Point
	g, f   int
	seq    int
	parent *pathNode
}

// openSet orders by f, then by insertion so equal-cost paths are deterministic.
type openSet []*pathNode

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)   { *o = append(*o, x.(*pathNode)) }
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}

var dirs = []Point{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}

// AStar finds the shortest 4-connected path from `from` to `to`.
// Returns the path as a slice of Points (excluding the start, including the end),
// an empty slice when from == to, and nil if no path exists.
// The start tile is never checked for passability.
func AStar(pm Passability, from, to Point) []Point {
	if pm == nil {
		return nil
	}
	if from == to {
		return []Point{}
	}
	if !pm.Passable(to) {
		return nil
	}

	closed := make(map[Point]bool)
	gScore := map[Point]int{from: 0}
	seq := 0
	open := &openSet{{pt: from, f: Manhattan(from, to)}}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if closed[cur.pt] {
			continue
		}
		closed[cur.pt] = true

		if cur.pt == to {
			var path []Point
			for n := cur; n.parent != nil; n = n.parent {
				path = append(path, n.pt)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}

		for _, d := range dirs {
			np := Point{cur.pt.X + d.X, cur.pt.Y + d.Y}
			if closed[np] || !pm.Passable(np) {
				continue
			}
			ng := cur.g + 1
			if prev, ok := gScore[np]; ok && ng >= prev {
				continue
			}
			gScore[np] = ng
			seq++
			heap.Push(open, &pathNode{pt: np, g: ng, f: ng + Manhattan(np, to), seq: seq, parent: cur})
		}
	}
	return nil
}

// GridPathfinder runs AStar over a roster's board: tiles must be in bounds,
// passable terrain and not occupied by another unit.
type GridPathfinder struct {
	Roster  Roster
	Terrain Passability // nil = open ground
}

func (g GridPathfinder) FindPath(ctx context.Context, from, to Point) ([]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pass := PassFunc(func(p Point) bool {
		if !g.Roster.InBounds(p) {
			return false
		}
		if g.Terrain != nil && !g.Terrain.Passable(p) {
			return false
		}
		return p == from || !g.Roster.Occupied(p)
	})
	return AStar(pass, from, to), nil
}
