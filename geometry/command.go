// Package geometry decodes and encodes the command stream of vector tile features.
//
// A geometry is a flat sequence of unsigned integers. Each command word holds the
// command id in its low 3 bits and a repeat count in the remaining bits. MoveTo
// and LineTo are followed by count pairs of zig-zag encoded deltas relative to the
// previous absolute position; ClosePath has no operands.
package geometry

import (
	"errors"
	"fmt"
)

// Type is the geometry type tag of a feature.
type Type uint32

const (
	Unknown Type = iota
	Point
	LineString
	Polygon
)

func (t Type) String() string {
	switch t {
	case Point:
		return "point"
	case LineString:
		return "linestring"
	case Polygon:
		return "polygon"
	}
	return "unknown"
}

type Command uint32

const (
	MoveTo    Command = 1
	LineTo    Command = 2
	ClosePath Command = 7
)

func (c Command) String() string {
	switch c {
	case MoveTo:
		return "move-to"
	case LineTo:
		return "line-to"
	case ClosePath:
		return "close-path"
	}
	return fmt.Sprintf("command(%d)", uint32(c))
}

// MaxCount is the largest repeat count a command word can hold.
const MaxCount = 1<<29 - 1

// ErrMalformed reports a geometry stream no well-formed encoder can produce.
var ErrMalformed = errors.New("vectiles: malformed geometry")

func CommandInteger(cmd Command, count uint32) uint32 {
	return uint32(cmd)&0x7 | count<<3
}

func ParseCommandInteger(v uint32) (Command, uint32) {
	return Command(v & 0x7), v >> 3
}

func ZigZag(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

func UnZigZag(n uint32) int32 {
	return int32(n>>1) ^ -int32(n&1)
}
