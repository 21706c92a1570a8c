package tessellate

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/vec"
)

// point is a polygon vertex with the outline normal of the ring it came from.
type point struct {
	pos    vec.Vec2
	normal vec.Vec2
}

// node is a vertex of a circular doubly linked ring. Splitting a ring
// duplicates nodes; the copies keep the index i of the point they stand for.
type node struct {
	i          uint32
	pos        vec.Vec2
	prev, next *node
	steiner    bool
}

// turn is positive when a, b, c make a left (counter-clockwise) turn in the
// mathematical orientation.
func turn(a, b, c vec.Vec2) float64 {
	return (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
}

func orient(a, b, c *node) float64 {
	return turn(a.pos, b.pos, c.pos)
}

func insertNode(i uint32, pos vec.Vec2, last *node) *node {
	p := &node{i: i, pos: pos}
	if last == nil {
		p.prev, p.next = p, p
		return p
	}
	p.next, p.prev = last.next, last
	last.next.prev = p
	last.next = p
	return p
}

func removeNode(p *node) {
	p.next.prev = p.prev
	p.prev.next = p.next
}

// linkRing links pts, numbered from offset, into a ring and returns its last node.
func linkRing(pts []point, offset int) *node {
	var last *node
	for k, p := range pts {
		last = insertNode(uint32(offset+k), p.pos, last)
	}
	if last != nil && last.pos == last.next.pos {
		removeNode(last)
		last = last.next
	}
	return last
}

// filterPoints drops coincident and collinear nodes between start and end.
func filterPoints(start, end *node) *node {
	if start == nil {
		return nil
	}
	if end == nil {
		end = start
	}
	p := start
	for {
		again := false
		if !p.steiner && (p.pos == p.next.pos || orient(p.prev, p, p.next) == 0) {
			removeNode(p)
			p = p.prev
			end = p
			if p == p.next {
				break
			}
			again = true
		} else {
			p = p.next
		}
		if !again && p == end {
			break
		}
	}
	return end
}

type earcutter struct {
	indices []uint32
}

func (e *earcutter) emit(a, b, c *node) {
	e.indices = append(e.indices, a.i, b.i, c.i)
}

// clip cuts ears off the ring at ear. When a full pass finds none it retries
// with degenerate nodes filtered out, then with local self-intersections cured
// and finally splits the ring in two along a valid diagonal.
func (e *earcutter) clip(ear *node, pass int) error {
	if ear == nil {
		return nil
	}
	stop := ear
	for ear.prev != ear.next {
		prev, next := ear.prev, ear.next
		if isEar(ear) {
			e.emit(prev, ear, next)
			removeNode(ear)
			ear = next.next
			stop = next.next
			continue
		}
		ear = next
		if ear != stop {
			continue
		}
		switch pass {
		case 0:
			return e.clip(filterPoints(ear, nil), 1)
		case 1:
			return e.clip(e.cureLocalIntersections(filterPoints(ear, nil)), 2)
		default:
			return e.split(ear)
		}
	}
	return nil
}

func isEar(ear *node) bool {
	a, b, c := ear.prev, ear, ear.next
	if orient(a, b, c) <= 0 {
		return false
	}
	x0, x1 := min(a.pos.X, b.pos.X, c.pos.X), max(a.pos.X, b.pos.X, c.pos.X)
	y0, y1 := min(a.pos.Y, b.pos.Y, c.pos.Y), max(a.pos.Y, b.pos.Y, c.pos.Y)
	for p := c.next; p != a; p = p.next {
		q := p.pos
		if q.X >= x0 && q.X <= x1 && q.Y >= y0 && q.Y <= y1 &&
			pointInTriangle(a.pos, b.pos, c.pos, q) && orient(p.prev, p, p.next) <= 0 {
			return false
		}
	}
	return true
}

// cureLocalIntersections replaces each bow tie a-p-p.next-b with the triangle a-p-b.
func (e *earcutter) cureLocalIntersections(start *node) *node {
	p := start
	for {
		a, b := p.prev, p.next.next
		if a.pos != b.pos && intersects(a, p, p.next, b) && locallyInside(a, b) && locallyInside(b, a) {
			e.emit(a, p, b)
			removeNode(p)
			removeNode(p.next)
			p, start = b, b
		}
		p = p.next
		if p == start {
			break
		}
	}
	return filterPoints(p, nil)
}

// split divides the ring along the first valid diagonal and clips both halves.
func (e *earcutter) split(start *node) error {
	if start.next.next.next == start {
		// A leftover triangle that is not an ear is flat or inverted.
		return nil
	}
	a := start
	for {
		for b := a.next.next; b != a.prev; b = b.next {
			if a.i == b.i || !isValidDiagonal(a, b) {
				continue
			}
			c := splitPolygon(a, b)
			a = filterPoints(a, a.next)
			c = filterPoints(c, c.next)
			if err := e.clip(a, 0); err != nil {
				return err
			}
			return e.clip(c, 0)
		}
		a = a.next
		if a == start {
			return ErrBrokenPath
		}
	}
}

// eliminateHoles splices every hole into the outer ring through a bridge,
// starting with the leftmost hole.
func eliminateHoles(outer *node, holes []*node) (*node, error) {
	queue := make([]*node, 0, len(holes))
	for _, h := range holes {
		if h == h.next {
			h.steiner = true
		}
		queue = append(queue, leftmost(h))
	}
	slices.SortFunc(queue, func(a, b *node) int {
		return cmp.Or(cmp.Compare(a.pos.X, b.pos.X), cmp.Compare(a.pos.Y, b.pos.Y))
	})
	for _, h := range queue {
		bridge := findHoleBridge(h, outer)
		if bridge == nil {
			return nil, ErrBrokenPath
		}
		reverse := splitPolygon(bridge, h)
		filterPoints(reverse, reverse.next)
		outer = filterPoints(bridge, bridge.next)
	}
	return outer, nil
}

// findHoleBridge finds an outer node visible from the leftmost hole node by
// casting a ray towards -x.
func findHoleBridge(hole, outer *node) *node {
	h := hole.pos
	qx := math.Inf(-1)
	var m *node
	p := outer
	for {
		a, b := p.pos, p.next.pos
		if h.Y <= a.Y && h.Y >= b.Y && b.Y != a.Y {
			x := a.X + (h.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if x <= h.X && x > qx {
				qx = x
				m = p.next
				if a.X < b.X {
					m = p
				}
				if x == h.X {
					// The hole touches the outer edge.
					return m
				}
			}
		}
		p = p.next
		if p == outer {
			break
		}
	}
	if m == nil {
		return nil
	}

	// Reflex nodes inside the triangle of the hole node, the ray hit and m may
	// block the view; take the one closest in angle to the ray.
	stop, mp := m, m.pos
	tanMin := math.Inf(1)
	p = m
	for {
		q := p.pos
		if h.X >= q.X && q.X >= mp.X && h.X != q.X {
			a, c := vec.Vec2{X: qx, Y: h.Y}, h
			if h.Y < mp.Y {
				a, c = c, a
			}
			if pointInTriangle(a, mp, c, q) {
				tan := math.Abs(h.Y-q.Y) / (h.X - q.X)
				if locallyInside(p, hole) &&
					(tan < tanMin || tan == tanMin && (q.X > m.pos.X || q.X == m.pos.X && sectorContainsSector(m, p))) {
					m = p
					tanMin = tan
				}
			}
		}
		p = p.next
		if p == stop {
			break
		}
	}
	return m
}

// sectorContainsSector reports whether the sector of m contains the sector of p.
func sectorContainsSector(m, p *node) bool {
	return orient(m.prev, m, p.prev) > 0 && orient(p.next, m, m.next) > 0
}

func leftmost(start *node) *node {
	result := start
	for p := start.next; p != start; p = p.next {
		if p.pos.X < result.pos.X || p.pos.X == result.pos.X && p.pos.Y < result.pos.Y {
			result = p
		}
	}
	return result
}

// pointInTriangle reports whether p lies inside or on the counter-clockwise
// triangle a, b, c.
func pointInTriangle(a, b, c, p vec.Vec2) bool {
	return (c.X-p.X)*(a.Y-p.Y) >= (a.X-p.X)*(c.Y-p.Y) &&
		(a.X-p.X)*(b.Y-p.Y) >= (b.X-p.X)*(a.Y-p.Y) &&
		(b.X-p.X)*(c.Y-p.Y) >= (c.X-p.X)*(b.Y-p.Y)
}

// isValidDiagonal reports whether a-b splits the ring into two simple rings.
func isValidDiagonal(a, b *node) bool {
	if a.next.i == b.i || a.prev.i == b.i || intersectsPolygon(a, b) {
		return false
	}
	// Opposite-facing sectors would leave a zero-area sliver.
	if locallyInside(a, b) && locallyInside(b, a) && middleInside(a, b) &&
		(orient(a.prev, a, b.prev) != 0 || orient(a, b.prev, b) != 0) {
		return true
	}
	// Zero-length diagonals join two reflex copies of one bridge point.
	return a.pos == b.pos && orient(a.prev, a, a.next) < 0 && orient(b.prev, b, b.next) < 0
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// intersects reports whether segments p1-q1 and p2-q2 intersect or touch.
func intersects(p1, q1, p2, q2 *node) bool {
	o1 := sign(orient(p1, q1, p2))
	o2 := sign(orient(p1, q1, q2))
	o3 := sign(orient(p2, q2, p1))
	o4 := sign(orient(p2, q2, q1))
	switch {
	case o1 != o2 && o3 != o4:
		return true
	case o1 == 0 && onSegment(p1.pos, p2.pos, q1.pos):
		return true
	case o2 == 0 && onSegment(p1.pos, q2.pos, q1.pos):
		return true
	case o3 == 0 && onSegment(p2.pos, p1.pos, q2.pos):
		return true
	case o4 == 0 && onSegment(p2.pos, q1.pos, q2.pos):
		return true
	}
	return false
}

// onSegment reports whether q lies in the bounding box of p-r.
func onSegment(p, q, r vec.Vec2) bool {
	return q.X <= max(p.X, r.X) && q.X >= min(p.X, r.X) && q.Y <= max(p.Y, r.Y) && q.Y >= min(p.Y, r.Y)
}

func intersectsPolygon(a, b *node) bool {
	p := a
	for {
		if p.i != a.i && p.next.i != a.i && p.i != b.i && p.next.i != b.i && intersects(p, p.next, a, b) {
			return true
		}
		p = p.next
		if p == a {
			return false
		}
	}
}

// locallyInside reports whether the diagonal a-b starts into the interior at a.
func locallyInside(a, b *node) bool {
	if orient(a.prev, a, a.next) > 0 {
		return orient(a, b, a.next) <= 0 && orient(a, a.prev, b) <= 0
	}
	return orient(a, b, a.prev) > 0 || orient(a, a.next, b) > 0
}

// crossings reports whether a ray from p towards +x crosses the ring an odd
// number of times.
func crossings(ring *node, p vec.Vec2) bool {
	inside := false
	q := ring
	for {
		a, b := q.pos, q.next.pos
		if (a.Y > p.Y) != (b.Y > p.Y) && b.Y != a.Y && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
		q = q.next
		if q == ring {
			return inside
		}
	}
}

func middleInside(a, b *node) bool {
	return crossings(a, a.pos.Add(b.pos).Mul(0.5))
}

// contains reports whether p lies inside the ring or on its boundary.
func contains(ring *node, p vec.Vec2) bool {
	q := ring
	for {
		a, b := q.pos, q.next.pos
		if turn(a, b, p) == 0 && onSegment(a, p, b) {
			return true
		}
		q = q.next
		if q == ring {
			break
		}
	}
	return crossings(ring, p)
}

// splitPolygon links a to b, duplicating both, and returns the duplicate of b
// which starts the second ring.
func splitPolygon(a, b *node) *node {
	a2 := &node{i: a.i, pos: a.pos}
	b2 := &node{i: b.i, pos: b.pos}
	an, bp := a.next, b.prev

	a.next, b.prev = b, a
	a2.next, an.prev = an, a2
	b2.next, a2.prev = a2, b2
	bp.next, b2.prev = b2, bp
	return b2
}

// triangulate cuts holes out of the outer ring and ear-clips the result. The
// outer ring must have positive and every hole negative signed area. It returns
// the points of all rings in order and index triples into them.
func triangulate(outer []point, holes [][]point) ([]point, []uint32, error) {
	root := linkRing(outer, 0)
	if root == nil || root.next == root.prev {
		return nil, nil, nil
	}
	total := len(outer)
	for _, hole := range holes {
		total += len(hole)
	}
	merged := make([]point, 0, total)
	merged = append(merged, outer...)

	var rings []*node
	for _, hole := range holes {
		h := linkRing(hole, len(merged))
		merged = append(merged, hole...)
		if h == nil {
			continue
		}
		if !contains(root, leftmost(h).pos) {
			return nil, nil, ErrBrokenPath
		}
		rings = append(rings, h)
	}

	root, err := eliminateHoles(root, rings)
	if err != nil {
		return nil, nil, err
	}
	e := &earcutter{indices: make([]uint32, 0, 3*len(merged))}
	if err := e.clip(root, 0); err != nil {
		return nil, nil, err
	}
	return merged, e.indices, nil
}
