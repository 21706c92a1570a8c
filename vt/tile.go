// Package vt builds renderable vector tiles: decoded layers, a tessellated mesh,
// the per-tile object table and a collider over the same geometry.
package vt

import (
	"sync"

	"github.com/eak1mov/go-vectiles/collider"
	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/tessellate"
	"github.com/eak1mov/go-vectiles/tile"
	"seehuhn.de/go/geom/vec"
)

// Styler assigns style feature ids to decoded features.
type Styler interface {
	Register(layer string, typ geometry.Type, props map[string]any) uint32
}

// Feature is one drawable feature of a layer.
type Feature struct {
	// ID is the style feature id returned by Styler.Register.
	ID uint32
	// Object indexes the tile object table.
	Object  int
	Indices tessellate.Range
}

// Drawable reports whether the feature produced any geometry.
func (f Feature) Drawable() bool {
	return !f.Indices.Empty()
}

type Layer struct {
	Name     string
	ID       int
	Extent   uint32
	Indices  tessellate.Range
	Features []Feature
}

// Object is what a hit test reports for a feature.
type Object struct {
	ID         uint64
	Layer      string
	Type       geometry.Type
	Style      uint32
	Properties map[string]any
}

// Tile is immutable once built. A re-fetched tile is a new Tile.
type Tile struct {
	ID     tile.ID
	Extent uint32
	Layers []Layer
	Mesh   *tessellate.Mesh

	collider *collider.Collider

	objectsMu sync.RWMutex
	objects   []Object
}

// Objects returns the object table.
func (t *Tile) Objects() []Object {
	t.objectsMu.RLock()
	defer t.objectsMu.RUnlock()
	return t.objects
}

// FeatureCount returns the number of features over all layers.
func (t *Tile) FeatureCount() int {
	n := 0
	for _, l := range t.Layers {
		n += len(l.Features)
	}
	return n
}

// HitTest returns the objects containing p, given in tile-local coordinates
// [0, Extent]. It does not wait for locks: ok is false when the collider or the
// object table is being written, and the tile should be treated as not ready.
func (t *Tile) HitTest(p vec.Vec2) (objects []Object, ok bool) {
	ids, ok := t.collider.TryQuery(p)
	if !ok {
		return nil, false
	}
	if !t.objectsMu.TryRLock() {
		return nil, false
	}
	defer t.objectsMu.RUnlock()

	objects = make([]Object, 0, len(ids))
	for _, id := range ids {
		objects = append(objects, t.objects[id])
	}
	return objects, true
}
