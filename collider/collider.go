// Package collider indexes tile geometry for point hit-testing.
//
// Geometry lives in tile-local coordinates. Filled areas are inserted as
// triangles and lines as capsule segments; both are stored as static shapes of a
// chipmunk space whose bounding box tree answers point queries.
package collider

import (
	"slices"
	"sync"

	"github.com/jakecoffman/cp"
	"seehuhn.de/go/geom/vec"
)

// Epsilon is the distance within which a point on a shape boundary counts as inside.
const Epsilon = 1e-3

type Collider struct {
	// mu separates insertion from queries; queries only ever try-lock it.
	mu sync.RWMutex
	// spaceMu serializes queries, the chipmunk space locks itself while querying.
	spaceMu sync.Mutex

	space   *cp.Space
	objects map[*cp.Shape]int
	order   map[int]int // object -> insertion sequence
}

// spaceInit guards cp.NewSpace, which numbers bodies with an unsynchronized
// package counter.
var spaceInit sync.Mutex

func New() *Collider {
	spaceInit.Lock()
	space := cp.NewSpace()
	spaceInit.Unlock()
	return &Collider{
		space:   space,
		objects: make(map[*cp.Shape]int),
		order:   make(map[int]int),
	}
}

func toVector(v vec.Vec2) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}

func (c *Collider) add(object int, shape *cp.Shape) {
	c.space.AddShape(shape)
	c.objects[shape] = object
	if _, ok := c.order[object]; !ok {
		c.order[object] = len(c.order)
	}
}

// InsertTriangles adds the triangles given as consecutive vertex triples.
// Degenerate triangles are skipped.
func (c *Collider) InsertTriangles(object int, vertices []vec.Vec2) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body := c.space.StaticBody
	for i := 0; i+2 < len(vertices); i += 3 {
		a, b, d := vertices[i], vertices[i+1], vertices[i+2]
		area := (b.X-a.X)*(d.Y-a.Y) - (b.Y-a.Y)*(d.X-a.X)
		switch {
		case area > 0:
		case area < 0:
			b, d = d, b
		default:
			continue
		}
		verts := []cp.Vector{toVector(a), toVector(b), toVector(d)}
		c.add(object, cp.NewPolyShapeRaw(body, len(verts), verts, 0))
	}
}

// InsertSegments adds the segments of a polyline, each widened by radius.
func (c *Collider) InsertSegments(object int, polyline []vec.Vec2, radius float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body := c.space.StaticBody
	for i := 0; i+1 < len(polyline); i++ {
		c.add(object, cp.NewSegment(body, toVector(polyline[i]), toVector(polyline[i+1]), radius))
	}
}

// Len returns the number of indexed shapes.
func (c *Collider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// TryQuery returns the objects containing p in insertion order. It never waits for
// a concurrent insertion: ok is false when the index is being written.
func (c *Collider) TryQuery(p vec.Vec2) (objects []int, ok bool) {
	if !c.mu.TryRLock() {
		return nil, false
	}
	defer c.mu.RUnlock()
	return c.query(p), true
}

// Query is the blocking form of TryQuery.
func (c *Collider) Query(p vec.Vec2) []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.query(p)
}

func (c *Collider) query(p vec.Vec2) []int {
	c.spaceMu.Lock()
	defer c.spaceMu.Unlock()

	point := toVector(p)
	hits := make(map[int]struct{})
	c.space.BBQuery(cp.NewBBForCircle(point, Epsilon), cp.SHAPE_FILTER_ALL,
		func(shape *cp.Shape, _ interface{}) {
			object, ok := c.objects[shape]
			if !ok {
				return
			}
			if _, seen := hits[object]; seen {
				return
			}
			if shape.PointQuery(point).Distance <= Epsilon {
				hits[object] = struct{}{}
			}
		}, nil)

	result := make([]int, 0, len(hits))
	for object := range hits {
		result = append(result, object)
	}
	slices.SortFunc(result, func(a, b int) int {
		return c.order[a] - c.order[b]
	})
	return result
}
