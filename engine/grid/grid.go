// Package grid implements the scene walk grid: a rectangle of square cells
// carrying walkability attributes, with path search and line tests over it.
package grid

import (
	"container/heap"
	"math"

	"github.com/nathoo/qdcore/engine/geom"
)

// Attr is a bit set of cell attributes.
type Attr uint32

const (
	Impassable Attr = 1 << iota
	Occupied
	PersonageOccupied
	Selected
	PersonagePath
)

// Grid is the walk grid of one scene. Cell (0,0) covers plane coordinates
// [0, cellSize) on both axes.
type Grid struct {
	size     geom.Vec2i
	cellSize float64
	cells    []Attr
}

// New returns an empty grid of sx by sy cells.
func New(sx, sy int, cellSize float64) *Grid {
	if sx < 0 {
		sx = 0
	}
	if sy < 0 {
		sy = 0
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{size: geom.Vec2i{X: sx, Y: sy}, cellSize: cellSize, cells: make([]Attr, sx*sy)}
}

func (g *Grid) Size() geom.Vec2i  { return g.size }
func (g *Grid) CellSize() float64 { return g.cellSize }

// InBounds reports whether c is a cell of the grid.
func (g *Grid) InBounds(c geom.Vec2i) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.size.X && c.Y < g.size.Y
}

// CellIndex returns the cell containing the plane point p.
func (g *Grid) CellIndex(p geom.Vec2f) (geom.Vec2i, bool) {
	c := geom.Vec2i{X: int(math.Floor(p.X / g.cellSize)), Y: int(math.Floor(p.Y / g.cellSize))}
	return c, g.InBounds(c)
}

// CellCenter returns the plane position of the centre of cell c.
func (g *Grid) CellCenter(c geom.Vec2i) geom.Vec3f {
	return geom.Vec3f{X: (float64(c.X) + 0.5) * g.cellSize, Y: (float64(c.Y) + 0.5) * g.cellSize}
}

// Attr returns the attributes of c. Cells outside the grid are impassable.
func (g *Grid) Attr(c geom.Vec2i) Attr {
	if !g.InBounds(c) {
		return Impassable
	}
	return g.cells[c.Y*g.size.X+c.X]
}

func (g *Grid) SetAttr(c geom.Vec2i, a Attr) {
	if g.InBounds(c) {
		g.cells[c.Y*g.size.X+c.X] |= a
	}
}

func (g *Grid) DropAttr(c geom.Vec2i, a Attr) {
	if g.InBounds(c) {
		g.cells[c.Y*g.size.X+c.X] &^= a
	}
}

// DropAll clears a from every cell.
func (g *Grid) DropAll(a Attr) {
	for i := range g.cells {
		g.cells[i] &^= a
	}
}

// rect calls fn for every cell of the size-wide block centred on center.
func (g *Grid) rect(center, size geom.Vec2i, fn func(geom.Vec2i) bool) bool {
	if size.X < 1 {
		size.X = 1
	}
	if size.Y < 1 {
		size.Y = 1
	}
	x0 := center.X - size.X/2
	y0 := center.Y - size.Y/2
	for y := y0; y < y0+size.Y; y++ {
		for x := x0; x < x0+size.X; x++ {
			if !fn(geom.Vec2i{X: x, Y: y}) {
				return false
			}
		}
	}
	return true
}

// SetRect sets a on the size-wide block centred on center.
func (g *Grid) SetRect(center, size geom.Vec2i, a Attr) {
	g.rect(center, size, func(c geom.Vec2i) bool { g.SetAttr(c, a); return true })
}

// DropRect clears a on the size-wide block centred on center.
func (g *Grid) DropRect(center, size geom.Vec2i, a Attr) {
	g.rect(center, size, func(c geom.Vec2i) bool { g.DropAttr(c, a); return true })
}

// CheckRect reports whether any cell of the block carries one of the bits in a.
func (g *Grid) CheckRect(center, size geom.Vec2i, a Attr) bool {
	return !g.rect(center, size, func(c geom.Vec2i) bool { return g.Attr(c)&a == 0 })
}

// CountRect returns how many cells of the block carry all the bits in a.
// Cells outside the grid count as impassable.
func (g *Grid) CountRect(center, size geom.Vec2i, a Attr) int {
	n := 0
	g.rect(center, size, func(c geom.Vec2i) bool {
		if g.Attr(c)&a == a {
			n++
		}
		return true
	})
	return n
}

// IsWalkable reports whether a size-wide object may stand centred on center.
// Occupancy is ignored on cells marked Selected, which belong to the object
// asking. Personage occupancy is ignored when ignorePersonages is set.
func (g *Grid) IsWalkable(center, size geom.Vec2i, ignorePersonages bool) bool {
	return g.rect(center, size, func(c geom.Vec2i) bool {
		if !g.InBounds(c) {
			return false
		}
		a := g.Attr(c)
		if a&Impassable != 0 {
			return false
		}
		if a&Selected != 0 {
			return true
		}
		if a&Occupied != 0 {
			return false
		}
		if a&PersonageOccupied != 0 && !ignorePersonages {
			return false
		}
		return true
	})
}

// Line returns the cells on the Bresenham segment from a to b, inclusive.
func Line(a, b geom.Vec2i) []geom.Vec2i {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	var out []geom.Vec2i
	for p := a; ; {
		out = append(out, p)
		if p == b {
			return out
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

// IsLineWalkable reports whether every cell between a and b is walkable for
// a size-wide object.
func (g *Grid) IsLineWalkable(a, b, size geom.Vec2i, ignorePersonages bool) bool {
	for _, c := range Line(a, b) {
		if !g.IsWalkable(c, size, ignorePersonages) {
			return false
		}
	}
	return true
}

// SetLine marks the cells of a segment with a.
func (g *Grid) SetLine(a, b, size geom.Vec2i, attr Attr) {
	for _, c := range Line(a, b) {
		g.SetRect(c, size, attr)
	}
}

// DropLine clears a from the cells of a segment.
func (g *Grid) DropLine(a, b, size geom.Vec2i, attr Attr) {
	for _, c := range Line(a, b) {
		g.DropRect(c, size, attr)
	}
}

// NearestWalkable searches outward in square rings from target for the
// closest cell accepted by ok.
func (g *Grid) NearestWalkable(target geom.Vec2i, ok func(geom.Vec2i) bool) (geom.Vec2i, bool) {
	if ok(target) {
		return target, true
	}
	maxR := g.size.X
	if g.size.Y > maxR {
		maxR = g.size.Y
	}
	for r := 1; r <= maxR; r++ {
		best, found, bestD := geom.Vec2i{}, false, 0
		for y := target.Y - r; y <= target.Y+r; y++ {
			for x := target.X - r; x <= target.X+r; x++ {
				if abs(x-target.X) != r && abs(y-target.Y) != r {
					continue
				}
				c := geom.Vec2i{X: x, Y: y}
				if !g.InBounds(c) || !ok(c) {
					continue
				}
				d := (x-target.X)*(x-target.X) + (y-target.Y)*(y-target.Y)
				if !found || d < bestD {
					best, found, bestD = c, true, d
				}
			}
		}
		if found {
			return best, true
		}
	}
	return geom.Vec2i{}, false
}

var (
	dirs4 = []geom.Vec2i{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}}
	dirs8 = []geom.Vec2i{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1}}
)

type node struct {
	cell  geom.Vec2i
	g, f  float64
	index int
}

type openSet []*node

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f == s[j].f {
		return s[i].g > s[j].g
	}
	return s[i].f < s[j].f
}
func (s openSet) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}
func (s *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*s)
	*s = append(*s, n)
}
func (s *openSet) Pop() any {
	old := *s
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*s = old[:len(old)-1]
	return n
}

// FindPath runs A* from one cell to another, moving in 4 or 8 directions
// over cells accepted by ok. The returned cells include both ends. The start
// cell is not checked.
func (g *Grid) FindPath(from, to geom.Vec2i, eightDirs bool, ok func(geom.Vec2i) bool) ([]geom.Vec2i, bool) {
	if !g.InBounds(from) || !g.InBounds(to) {
		return nil, false
	}
	if from == to {
		return []geom.Vec2i{from}, true
	}
	steps := dirs4
	if eightDirs {
		steps = dirs8
	}
	h := func(c geom.Vec2i) float64 {
		dx, dy := float64(abs(c.X-to.X)), float64(abs(c.Y-to.Y))
		if eightDirs {
			return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
		}
		return dx + dy
	}

	idx := func(c geom.Vec2i) int { return c.Y*g.size.X + c.X }
	cameFrom := make(map[int]geom.Vec2i)
	best := map[int]float64{idx(from): 0}
	closed := make(map[int]bool)
	open := &openSet{}
	heap.Push(open, &node{cell: from, f: h(from)})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		ci := idx(cur.cell)
		if closed[ci] {
			continue
		}
		if cur.cell == to {
			path := []geom.Vec2i{to}
			for c := to; c != from; {
				c = cameFrom[idx(c)]
				path = append(path, c)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, true
		}
		closed[ci] = true
		for _, d := range steps {
			nc := cur.cell.Add(d)
			if !g.InBounds(nc) || closed[idx(nc)] || !ok(nc) {
				continue
			}
			cost := 1.0
			if d.X != 0 && d.Y != 0 {
				// No corner cutting.
				if !ok(geom.Vec2i{X: cur.cell.X + d.X, Y: cur.cell.Y}) || !ok(geom.Vec2i{X: cur.cell.X, Y: cur.cell.Y + d.Y}) {
					continue
				}
				cost = math.Sqrt2
			}
			ng := cur.g + cost
			ni := idx(nc)
			if old, seen := best[ni]; seen && ng >= old {
				continue
			}
			best[ni] = ng
			cameFrom[ni] = cur.cell
			heap.Push(open, &node{cell: nc, g: ng, f: ng + h(nc)})
		}
	}
	return nil, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
