package mvt

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/eak1mov/go-vectiles/geometry"
	"google.golang.org/protobuf/encoding/protowire"
)

// Encode serializes t. Property values must be of the types produced by Decode
// (string, float64, int64, uint64, bool); float32 is also accepted.
func Encode(t *Tile) ([]byte, error) {
	var b []byte
	for _, layer := range t.Layers {
		msg, err := encodeLayer(layer)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", layer.Name, err)
		}
		b = protowire.AppendTag(b, tileLayers, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b, nil
}

func encodeLayer(l *Layer) ([]byte, error) {
	version := l.Version
	if version == 0 {
		version = 2
	}
	b := protowire.AppendTag(nil, layerVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(version))
	b = protowire.AppendTag(b, layerName, protowire.BytesType)
	b = protowire.AppendString(b, l.Name)

	for _, f := range l.Features {
		b = protowire.AppendTag(b, layerFeatures, protowire.BytesType)
		b = protowire.AppendBytes(b, encodeFeature(f))
	}
	for _, k := range l.Keys {
		b = protowire.AppendTag(b, layerKeys, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	for _, v := range l.Values {
		msg, err := encodeValue(v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, layerValues, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	if l.Extent != 0 && l.Extent != DefaultExtent {
		b = protowire.AppendTag(b, layerExtent, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(l.Extent))
	}
	return b, nil
}

func appendPacked(b []byte, num protowire.Number, values []uint32) []byte {
	if len(values) == 0 {
		return b
	}
	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func encodeFeature(f *Feature) []byte {
	var b []byte
	if f.ID != 0 {
		b = protowire.AppendTag(b, featureID, protowire.VarintType)
		b = protowire.AppendVarint(b, f.ID)
	}
	b = appendPacked(b, featureTags, f.Tags)
	b = protowire.AppendTag(b, featureType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(f.Type))
	return appendPacked(b, featureGeometry, f.Geometry)
}

func encodeValue(v any) ([]byte, error) {
	var b []byte
	switch v := v.(type) {
	case string:
		b = protowire.AppendTag(b, valueString, protowire.BytesType)
		b = protowire.AppendString(b, v)
	case float32:
		b = protowire.AppendTag(b, valueFloat, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	case float64:
		b = protowire.AppendTag(b, valueDouble, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	case int64:
		b = protowire.AppendTag(b, valueSint, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(v))
	case int:
		b = protowire.AppendTag(b, valueSint, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
	case uint64:
		b = protowire.AppendTag(b, valueUint, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	case bool:
		b = protowire.AppendTag(b, valueBool, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(v))
	default:
		return nil, fmt.Errorf("%w: unsupported property type %T", ErrInvalidTile, v)
	}
	return b, nil
}

// LayerBuilder accumulates features, interning property keys and values.
type LayerBuilder struct {
	layer  *Layer
	keys   map[string]uint32
	values map[any]uint32
}

func NewLayerBuilder(name string, extent uint32) *LayerBuilder {
	return &LayerBuilder{
		layer:  &Layer{Version: 2, Name: name, Extent: extent},
		keys:   make(map[string]uint32),
		values: make(map[any]uint32),
	}
}

// Add appends a feature with the given properties. Values must be comparable.
func (lb *LayerBuilder) Add(id uint64, typ geometry.Type, geom []uint32, props map[string]any) {
	f := &Feature{ID: id, Type: typ, Geometry: geom}
	for _, k := range slices.Sorted(maps.Keys(props)) {
		ki, ok := lb.keys[k]
		if !ok {
			ki = uint32(len(lb.layer.Keys))
			lb.keys[k] = ki
			lb.layer.Keys = append(lb.layer.Keys, k)
		}
		v := props[k]
		vi, ok := lb.values[v]
		if !ok {
			vi = uint32(len(lb.layer.Values))
			lb.values[v] = vi
			lb.layer.Values = append(lb.layer.Values, v)
		}
		f.Tags = append(f.Tags, ki, vi)
	}
	lb.layer.Features = append(lb.layer.Features, f)
}

func (lb *LayerBuilder) Layer() *Layer {
	return lb.layer
}
