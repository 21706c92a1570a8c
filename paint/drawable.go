// Package paint orders the features of resident tiles into draw calls.
package paint

import (
	"cmp"
	"slices"

	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/tessellate"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/vt"
)

// FeatureCollection is the read side of a style table, keyed by style
// feature id.
type FeatureCollection interface {
	ZIndex(id uint32) float64
	HasAlpha(id uint32) bool
	IsVisible(id uint32) bool
	HasOutline(id uint32) bool
}

type Pipeline uint8

const (
	// Opaque draws without blending.
	Opaque Pipeline = iota
	// Blend draws with alpha blending.
	Blend
)

func (p Pipeline) String() string {
	if p == Blend {
		return "blend"
	}
	return "opaque"
}

type Pass uint8

const (
	FillPass Pass = iota
	OutlinePass
)

func (p Pass) String() string {
	if p == OutlinePass {
		return "outline"
	}
	return "fill"
}

// DrawCall draws one index range of a tile mesh. Instance encodes the tile
// index and the pass: (tile << 1) | 1 for fills, tile << 1 for outlines.
type DrawCall struct {
	Pipeline   Pipeline
	Pass       Pass
	Feature    uint32
	Type       geometry.Type
	Indices    tessellate.Range
	Instance   uint32
	StencilRef uint32
}

type feature struct {
	vt.Feature
	Type geometry.Type
}

// DrawableTile is the paint view of a built tile. It shares the tile mesh.
type DrawableTile struct {
	ID         tile.ID
	Extent     uint32
	IndexCount uint32
	Mesh       *tessellate.Mesh

	features []feature
}

func NewDrawableTile(t *vt.Tile) *DrawableTile {
	objects := t.Objects()
	d := &DrawableTile{
		ID:         t.ID,
		Extent:     t.Extent,
		IndexCount: uint32(t.Mesh.IndexCount()),
		Mesh:       t.Mesh,
		features:   make([]feature, 0, t.FeatureCount()),
	}
	for _, l := range t.Layers {
		for _, f := range l.Features {
			d.features = append(d.features, feature{Feature: f, Type: objects[f.Object].Type})
		}
	}
	return d
}

// Plan returns the draw calls of the tile: features sorted by z-index, the
// opaque ones first and the translucent ones after them. Features with an
// empty range or hidden by the style are skipped. Each drawn feature gets the
// next stencil reference within its group, and an outline call follows its
// fill when the style has an outline. Plan does not modify d and may be called
// concurrently.
func (d *DrawableTile) Plan(styles FeatureCollection, tileIndex uint32) []DrawCall {
	features := slices.Clone(d.features)
	slices.SortStableFunc(features, func(a, b feature) int {
		return cmp.Compare(styles.ZIndex(a.ID), styles.ZIndex(b.ID))
	})

	var opaque, alpha []feature
	for _, f := range features {
		if styles.HasAlpha(f.ID) {
			alpha = append(alpha, f)
		} else {
			opaque = append(opaque, f)
		}
	}

	var calls []DrawCall
	for _, group := range []struct {
		pipeline Pipeline
		features []feature
	}{{Opaque, opaque}, {Blend, alpha}} {
		ref := uint32(0)
		for _, f := range group.features {
			if f.Indices.Empty() || !styles.IsVisible(f.ID) {
				continue
			}
			call := DrawCall{
				Pipeline:   group.pipeline,
				Pass:       FillPass,
				Feature:    f.ID,
				Type:       f.Type,
				Indices:    f.Indices,
				Instance:   tileIndex<<1 | 1,
				StencilRef: ref,
			}
			calls = append(calls, call)
			if styles.HasOutline(f.ID) {
				call.Pass = OutlinePass
				call.Instance = tileIndex << 1
				calls = append(calls, call)
			}
			ref++
		}
	}
	return calls
}
