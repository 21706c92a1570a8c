package geometry

import (
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// SignedArea returns the shoelace area of a ring given without the closing point.
// In tile coordinates (y pointing down) a positive area marks an exterior ring.
func SignedArea(points []vec.Vec2) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	sum := 0.0
	prev := points[n-1]
	for _, pt := range points {
		sum += prev.X*pt.Y - pt.X*prev.Y
		prev = pt
	}
	return sum / 2
}

// Ring is one subpath of a path, without the closing point.
type Ring struct {
	Points []vec.Vec2
	Closed bool
	Area   float64
}

func (r Ring) Exterior() bool {
	return r.Area > 0
}

// Reversed returns the ring with the opposite winding.
func (r Ring) Reversed() Ring {
	points := make([]vec.Vec2, len(r.Points))
	for i, pt := range r.Points {
		points[len(points)-1-i] = pt
	}
	return Ring{Points: points, Closed: r.Closed, Area: -r.Area}
}

// Rings splits p into subpaths. A trailing point equal to the first one is dropped
// from closed subpaths. Curve segments contribute their end points.
func Rings(p *path.Data) []Ring {
	var rings []Ring
	var current []vec.Vec2
	closed := false
	flush := func() {
		if len(current) == 0 {
			return
		}
		if closed && len(current) > 1 && current[0] == current[len(current)-1] {
			current = current[:len(current)-1]
		}
		rings = append(rings, Ring{Points: current, Closed: closed, Area: SignedArea(current)})
		current, closed = nil, false
	}

	i := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			flush()
			current = append(current, p.Coords[i])
			i++
		case path.CmdLineTo:
			current = append(current, p.Coords[i])
			i++
		case path.CmdQuadTo:
			current = append(current, p.Coords[i+1])
			i += 2
		case path.CmdCubeTo:
			current = append(current, p.Coords[i+2])
			i += 3
		case path.CmdClose:
			closed = true
			flush()
		}
	}
	flush()
	return rings
}
