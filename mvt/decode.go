package mvt

import (
	"fmt"
	"math"

	"github.com/eak1mov/go-vectiles/geometry"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of vector_tile.proto.
const (
	tileLayers = 3

	layerVersion  = 15
	layerName     = 1
	layerFeatures = 2
	layerKeys     = 3
	layerValues   = 4
	layerExtent   = 5

	featureID       = 1
	featureTags     = 2
	featureType     = 3
	featureGeometry = 4

	valueString = 1
	valueFloat  = 2
	valueDouble = 3
	valueInt    = 4
	valueUint   = 5
	valueSint   = 6
	valueBool   = 7
)

// fields walks the top-level fields of a message, handing each one to fn with the
// remaining buffer positioned at its value. fn returns the number of bytes it consumed,
// or -1 to have the value skipped.
func fields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrInvalidTile, protowire.ParseError(n))
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", ErrInvalidTile, num, protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	return nil
}

func consumeBytes(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: %w", ErrInvalidTile, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidTile, protowire.ParseError(n))
	}
	return v, n, nil
}

// consumePacked reads a repeated uint32 field in packed or unpacked form.
func consumePacked(dst []uint32, typ protowire.Type, b []byte) ([]uint32, int, error) {
	if typ == protowire.VarintType {
		v, n, err := consumeVarint(b)
		return append(dst, uint32(v)), n, err
	}
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("%w: unexpected wire type %d for packed field", ErrInvalidTile, typ)
	}
	packed, n, err := consumeBytes(b)
	if err != nil {
		return nil, 0, err
	}
	for len(packed) > 0 {
		v, m, err := consumeVarint(packed)
		if err != nil {
			return nil, 0, err
		}
		dst = append(dst, uint32(v))
		packed = packed[m:]
	}
	return dst, n, nil
}

// Decode parses a vector tile. Unknown fields are skipped.
func Decode(data []byte) (*Tile, error) {
	tile := &Tile{}
	err := fields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != tileLayers || typ != protowire.BytesType {
			return -1, nil
		}
		msg, n, err := consumeBytes(b)
		if err != nil {
			return 0, err
		}
		layer, err := decodeLayer(msg)
		if err != nil {
			return 0, fmt.Errorf("layer %d: %w", len(tile.Layers), err)
		}
		tile.Layers = append(tile.Layers, layer)
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return tile, nil
}

func decodeLayer(data []byte) (*Layer, error) {
	layer := &Layer{Version: 1, Extent: DefaultExtent}
	err := fields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == layerVersion && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			layer.Version = uint32(v)
			return n, err
		case num == layerExtent && typ == protowire.VarintType:
			v, n, err := consumeVarint(b)
			layer.Extent = uint32(v)
			return n, err
		case typ != protowire.BytesType:
			return -1, nil
		}

		msg, n, err := consumeBytes(b)
		if err != nil {
			return 0, err
		}
		switch num {
		case layerName:
			layer.Name = string(msg)
		case layerKeys:
			layer.Keys = append(layer.Keys, string(msg))
		case layerValues:
			v, err := decodeValue(msg)
			if err != nil {
				return 0, err
			}
			layer.Values = append(layer.Values, v)
		case layerFeatures:
			f, err := decodeFeature(msg)
			if err != nil {
				return 0, fmt.Errorf("feature %d: %w", len(layer.Features), err)
			}
			layer.Features = append(layer.Features, f)
		}
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	if layer.Extent == 0 {
		return nil, fmt.Errorf("%w: layer %q has zero extent", ErrInvalidTile, layer.Name)
	}
	return layer, nil
}

func decodeFeature(data []byte) (*Feature, error) {
	f := &Feature{}
	err := fields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var n int
		var err error
		switch num {
		case featureID:
			if typ != protowire.VarintType {
				return -1, nil
			}
			f.ID, n, err = consumeVarint(b)
		case featureType:
			if typ != protowire.VarintType {
				return -1, nil
			}
			var v uint64
			v, n, err = consumeVarint(b)
			f.Type = geometry.Type(v)
		case featureTags:
			f.Tags, n, err = consumePacked(f.Tags, typ, b)
		case featureGeometry:
			f.Geometry, n, err = consumePacked(f.Geometry, typ, b)
		default:
			return -1, nil
		}
		return n, err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func decodeValue(data []byte) (any, error) {
	var value any
	err := fields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == valueString && typ == protowire.BytesType:
			v, n, err := consumeBytes(b)
			value = string(v)
			return n, err
		case num == valueFloat && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return 0, fmt.Errorf("%w: %w", ErrInvalidTile, protowire.ParseError(n))
			}
			value = float64(math.Float32frombits(v))
			return n, nil
		case num == valueDouble && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return 0, fmt.Errorf("%w: %w", ErrInvalidTile, protowire.ParseError(n))
			}
			value = math.Float64frombits(v)
			return n, nil
		case typ != protowire.VarintType:
			return -1, nil
		}

		v, n, err := consumeVarint(b)
		switch num {
		case valueInt:
			value = int64(v)
		case valueUint:
			value = v
		case valueSint:
			value = protowire.DecodeZigZag(v)
		case valueBool:
			value = protowire.DecodeBool(v)
		}
		return n, err
	})
	return value, err
}
