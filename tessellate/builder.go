package tessellate

import (
	"errors"
	"math"
	"slices"

	"github.com/eak1mov/go-vectiles/geometry"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// Tolerance is the fixed geometric tolerance in normalized tile units. Points
// closer than this are merged and turns flatter than this are treated as straight.
const Tolerance = 1e-4

// MiterLimit is the longest miter, in half widths, before a join is beveled.
const MiterLimit = 4.0

var (
	ErrExtentNotSet = errors.New("vectiles: tessellation extent not set")
	ErrBrokenPath   = errors.New("vectiles: path cannot be tessellated")
)

// Builder appends tessellated features to one Mesh. SetExtent must be called
// before every Fill or Stroke. A failed call leaves the mesh unchanged and
// returns an empty range.
type Builder struct {
	mesh   Mesh
	extent float64
}

func NewBuilder() *Builder {
	return &Builder{}
}

// SetExtent sets the size of the coordinate space of the next feature.
func (b *Builder) SetExtent(extent uint32) {
	b.extent = float64(extent)
}

// Mesh returns the accumulated mesh. The Builder must not be used afterwards.
func (b *Builder) Mesh() *Mesh {
	return &b.mesh
}

func (b *Builder) begin() (float64, Range, error) {
	extent := b.extent
	b.extent = 0
	start := uint32(len(b.mesh.Indices))
	if extent <= 0 {
		return 0, Range{Start: start, End: start}, ErrExtentNotSet
	}
	return extent, Range{Start: start, End: start}, nil
}

func (b *Builder) rollback(r Range, vertices int) {
	b.mesh.Indices = b.mesh.Indices[:r.Start]
	b.mesh.Vertices = b.mesh.Vertices[:vertices]
}

func (b *Builder) end(r Range) Range {
	r.End = uint32(len(b.mesh.Indices))
	return r
}

// normalize scales ring points into [0, 1] and drops points closer than Tolerance
// to their predecessor (including the wrap-around for closed rings).
func normalize(points []vec.Vec2, extent float64, closed bool) []vec.Vec2 {
	result := make([]vec.Vec2, 0, len(points))
	for _, p := range points {
		q := p.Mul(1 / extent)
		if len(result) > 0 && q.Sub(result[len(result)-1]).Length() < Tolerance {
			continue
		}
		result = append(result, q)
	}
	for closed && len(result) > 1 && result[0].Sub(result[len(result)-1]).Length() < Tolerance {
		result = result[:len(result)-1]
	}
	return result
}

// edgeNormal is the normal of the edge a->b pointing away from the fill of a
// ring with positive signed area.
func edgeNormal(a, b vec.Vec2) vec.Vec2 {
	d := b.Sub(a).Normalize()
	return vec.Vec2{X: d.Y, Y: -d.X}
}

// ringPoints attaches averaged outline normals to the points of a closed ring.
func ringPoints(ring []vec.Vec2) []point {
	n := len(ring)
	result := make([]point, n)
	for i, p := range ring {
		n1 := edgeNormal(ring[(i+n-1)%n], p)
		n2 := edgeNormal(p, ring[(i+1)%n])
		normal := n1.Add(n2).Normalize()
		if normal == (vec.Vec2{}) {
			normal = n1
		}
		result[i] = point{pos: p, normal: normal}
	}
	return result
}

type polygon struct {
	outer []point
	holes [][]point
}

// polygons groups closed rings into polygons. The winding of the first ring
// defines the exterior winding of the feature; rings with the opposite winding
// are holes of the preceding exterior ring.
func polygons(p *path.Data, extent float64) []polygon {
	var result []polygon
	exteriorSign := 0.0
	for _, ring := range geometry.Rings(p) {
		points := normalize(ring.Points, extent, true)
		area := geometry.SignedArea(points)
		if len(points) < 3 || math.Abs(area) < Tolerance*Tolerance {
			continue
		}
		if exteriorSign == 0 {
			exteriorSign = math.Copysign(1, area)
		}
		if exteriorSign < 0 {
			slices.Reverse(points)
			area = -area
		}
		if area > 0 {
			result = append(result, polygon{outer: ringPoints(points)})
			continue
		}
		last := &result[len(result)-1]
		last.holes = append(last.holes, ringPoints(points))
	}
	return result
}

// Fill triangulates the polygon rings of p. Holes are cut out of the exterior
// ring that precedes them.
func (b *Builder) Fill(p *path.Data) (Range, error) {
	extent, r, err := b.begin()
	if err != nil {
		return r, err
	}
	vertices := len(b.mesh.Vertices)

	for _, poly := range polygons(p, extent) {
		merged, indices, err := triangulate(poly.outer, poly.holes)
		if err != nil {
			b.rollback(r, vertices)
			return r, err
		}
		base := uint32(len(b.mesh.Vertices))
		for _, pt := range merged {
			b.mesh.Vertices = append(b.mesh.Vertices, Vertex{Position: pt.pos, Normal: pt.normal, Scale: 1})
		}
		for _, idx := range indices {
			b.mesh.Indices = append(b.mesh.Indices, base+idx)
		}
	}
	return b.end(r), nil
}

// Stroke builds a ribbon along every subpath of p. The ribbon has zero width in
// the mesh; each side is extruded along Normal at draw time. Joins are mitered
// up to MiterLimit and beveled beyond; line ends are butt capped.
func (b *Builder) Stroke(p *path.Data, zoom float64) (Range, error) {
	extent, r, err := b.begin()
	if err != nil {
		return r, err
	}
	vertices := len(b.mesh.Vertices)
	scale := float32(math.Exp2(-zoom))

	for _, ring := range geometry.Rings(p) {
		points := normalize(ring.Points, extent, ring.Closed)
		closed := ring.Closed && len(points) > 2
		if len(points) < 2 {
			continue
		}
		if err := b.ribbon(points, closed, scale); err != nil {
			b.rollback(r, vertices)
			return r, err
		}
	}
	return b.end(r), nil
}

func (b *Builder) ribbon(points []vec.Vec2, closed bool, scale float32) error {
	n := len(points)
	type pair struct {
		pos    vec.Vec2
		normal vec.Vec2
	}
	var pairs []pair
	for i := range n {
		hasPrev := closed || i > 0
		hasNext := closed || i < n-1
		var n1, n2 vec.Vec2
		if hasPrev {
			n1 = edgeNormal(points[(i+n-1)%n], points[i])
		}
		if hasNext {
			n2 = edgeNormal(points[i], points[(i+1)%n])
		}
		switch {
		case !hasPrev:
			pairs = append(pairs, pair{points[i], n2})
		case !hasNext:
			pairs = append(pairs, pair{points[i], n1})
		default:
			miter := n1.Add(n2).Normalize()
			cos := miter.Dot(n1)
			if miter == (vec.Vec2{}) || cos < 1/MiterLimit {
				pairs = append(pairs, pair{points[i], n1}, pair{points[i], n2})
			} else {
				pairs = append(pairs, pair{points[i], miter.Mul(1 / cos)})
			}
		}
	}
	if closed {
		pairs = append(pairs, pairs[0])
	}
	if len(pairs) < 2 {
		return ErrBrokenPath
	}

	base := uint32(len(b.mesh.Vertices))
	for _, p := range pairs {
		b.mesh.Vertices = append(b.mesh.Vertices,
			Vertex{Position: p.pos, Normal: p.normal, Scale: scale},
			Vertex{Position: p.pos, Normal: p.normal.Mul(-1), Scale: scale},
		)
	}
	for i := range uint32(len(pairs) - 1) {
		l0, r0 := base+2*i, base+2*i+1
		l1, r1 := l0+2, r0+2
		b.mesh.Indices = append(b.mesh.Indices, l0, r0, l1, r0, r1, l1)
	}
	return nil
}
