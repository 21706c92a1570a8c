// Package mvt reads and writes the Mapbox Vector Tile protobuf encoding.
//
// Only the container is handled here: layers, features, property tables and the
// raw packed geometry. Geometry commands are interpreted by package geometry.
package mvt

import (
	"errors"
	"fmt"

	"github.com/eak1mov/go-vectiles/geometry"
)

const DefaultExtent = 4096

var ErrInvalidTile = errors.New("vectiles: invalid vector tile")

type Tile struct {
	Layers []*Layer
}

// Layer returns the layer with the given name, or nil.
func (t *Tile) Layer(name string) *Layer {
	for _, l := range t.Layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

type Layer struct {
	Version  uint32
	Name     string
	Extent   uint32
	Keys     []string
	Values   []any
	Features []*Feature
}

type Feature struct {
	ID       uint64
	Tags     []uint32
	Type     geometry.Type
	Geometry []uint32
}

// Properties resolves the feature tags against the key and value tables of l.
func (f *Feature) Properties(l *Layer) (map[string]any, error) {
	if len(f.Tags)%2 != 0 {
		return nil, fmt.Errorf("%w: odd tag count %d", ErrInvalidTile, len(f.Tags))
	}
	props := make(map[string]any, len(f.Tags)/2)
	for i := 0; i < len(f.Tags); i += 2 {
		k, v := f.Tags[i], f.Tags[i+1]
		if int(k) >= len(l.Keys) || int(v) >= len(l.Values) {
			return nil, fmt.Errorf("%w: tag (%d, %d) out of range", ErrInvalidTile, k, v)
		}
		props[l.Keys[k]] = l.Values[v]
	}
	return props, nil
}
