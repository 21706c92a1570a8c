package geometry

import (
	"fmt"
	"io"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// Decoder turns the command stream of one feature into paths of absolute tile
// coordinates. The cursor and the current position are shared by successive
// calls to Next, so each primitive continues from where the previous one ended.
type Decoder struct {
	typ    Type
	geom   []uint32
	cursor int
	x, y   int32
}

func NewDecoder(typ Type, geom []uint32) *Decoder {
	return &Decoder{typ: typ, geom: geom}
}

// Done reports whether the whole stream has been consumed.
func (d *Decoder) Done() bool {
	return d.cursor >= len(d.geom)
}

func (d *Decoder) malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s at word %d: %s", ErrMalformed, d.typ, d.cursor, fmt.Sprintf(format, args...))
}

func (d *Decoder) advance() (vec.Vec2, error) {
	if d.cursor+2 > len(d.geom) {
		return vec.Vec2{}, d.malformed("truncated coordinates")
	}
	d.x += UnZigZag(d.geom[d.cursor])
	d.y += UnZigZag(d.geom[d.cursor+1])
	d.cursor += 2
	return vec.Vec2{X: float64(d.x), Y: float64(d.y)}, nil
}

// Next decodes the next primitive. A Point path ends after its move-to, a
// LineString path ends after its line-to, and a Polygon path runs to the end of
// the stream and may hold several rings. Next returns io.EOF when Done.
func (d *Decoder) Next() (*path.Data, error) {
	if d.Done() {
		return nil, io.EOF
	}
	if d.typ < Point || d.typ > Polygon {
		return nil, d.malformed("unsupported geometry type %d", uint32(d.typ))
	}

	p := &path.Data{}
	open := false
	for !d.Done() {
		cmd, count := ParseCommandInteger(d.geom[d.cursor])
		d.cursor++

		switch cmd {
		case MoveTo:
			if count == 0 {
				return nil, d.malformed("empty %v", cmd)
			}
			for range count {
				pt, err := d.advance()
				if err != nil {
					return nil, err
				}
				p.Cmds = append(p.Cmds, path.CmdMoveTo)
				p.Coords = append(p.Coords, pt)
			}
			if d.typ == Point {
				return p, nil
			}
			open = true

		case LineTo:
			if d.typ == Point {
				return nil, d.malformed("%v in point geometry", cmd)
			}
			if !open {
				return nil, d.malformed("%v without move-to", cmd)
			}
			if count == 0 {
				return nil, d.malformed("empty %v", cmd)
			}
			for range count {
				pt, err := d.advance()
				if err != nil {
					return nil, err
				}
				p.Cmds = append(p.Cmds, path.CmdLineTo)
				p.Coords = append(p.Coords, pt)
			}
			if d.typ == LineString {
				return p, nil
			}

		case ClosePath:
			if d.typ != Polygon {
				return nil, d.malformed("%v outside polygon", cmd)
			}
			if !open {
				return nil, d.malformed("%v without move-to", cmd)
			}
			p.Cmds = append(p.Cmds, path.CmdClose)
			open = false

		default:
			return nil, d.malformed("unknown %v", cmd)
		}
	}

	if d.typ != Polygon {
		// The stream ended inside a primitive: a line with a move-to only.
		return nil, d.malformed("incomplete %s", d.typ)
	}
	return p, nil
}

// DecodeAll decodes every primitive of a feature.
func DecodeAll(typ Type, geom []uint32) ([]*path.Data, error) {
	if len(geom) == 0 {
		return nil, fmt.Errorf("%w: empty %s", ErrMalformed, typ)
	}
	d := NewDecoder(typ, geom)
	var paths []*path.Data
	for !d.Done() {
		p, err := d.Next()
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Merge concatenates paths into one multi-subpath path.
func Merge(paths []*path.Data) *path.Data {
	if len(paths) == 1 {
		return paths[0]
	}
	merged := &path.Data{}
	for _, p := range paths {
		merged.Cmds = append(merged.Cmds, p.Cmds...)
		merged.Coords = append(merged.Coords, p.Coords...)
	}
	return merged
}
