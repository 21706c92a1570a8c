package geometry

import (
	"math"

	"seehuhn.de/go/geom/path"
)

// Encoder builds a command stream from absolute integer coordinates.
// Consecutive move-tos or line-tos share one command word.
type Encoder struct {
	geom    []uint32
	x, y    int32
	last    Command
	lastIdx int
}

func (e *Encoder) command(cmd Command) {
	if cmd != ClosePath && cmd == e.last {
		_, count := ParseCommandInteger(e.geom[e.lastIdx])
		if count < MaxCount {
			e.geom[e.lastIdx] = CommandInteger(cmd, count+1)
			return
		}
	}
	e.last = cmd
	e.lastIdx = len(e.geom)
	e.geom = append(e.geom, CommandInteger(cmd, 1))
}

func (e *Encoder) point(x, y int32) {
	e.geom = append(e.geom, ZigZag(x-e.x), ZigZag(y-e.y))
	e.x, e.y = x, y
}

func (e *Encoder) MoveTo(x, y int32) {
	e.command(MoveTo)
	e.point(x, y)
}

func (e *Encoder) LineTo(x, y int32) {
	e.command(LineTo)
	e.point(x, y)
}

func (e *Encoder) ClosePath() {
	e.command(ClosePath)
}

// Geometry returns the encoded stream. The Encoder may continue to be used.
func (e *Encoder) Geometry() []uint32 {
	return e.geom
}

// Encode encodes a path of integral coordinates. Curves are not representable
// and are replaced by a line to their end point.
func Encode(p *path.Data) []uint32 {
	var e Encoder
	i := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			pt := p.Coords[i]
			e.MoveTo(int32(math.Round(pt.X)), int32(math.Round(pt.Y)))
			i++
		case path.CmdLineTo:
			pt := p.Coords[i]
			e.LineTo(int32(math.Round(pt.X)), int32(math.Round(pt.Y)))
			i++
		case path.CmdQuadTo:
			pt := p.Coords[i+1]
			e.LineTo(int32(math.Round(pt.X)), int32(math.Round(pt.Y)))
			i += 2
		case path.CmdCubeTo:
			pt := p.Coords[i+2]
			e.LineTo(int32(math.Round(pt.X)), int32(math.Round(pt.Y)))
			i += 3
		case path.CmdClose:
			e.ClosePath()
		}
	}
	return e.Geometry()
}
