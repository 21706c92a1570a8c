package mvt_test

import (
	"testing"

	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/mvt"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeDecode(t *testing.T) {
	roads := mvt.NewLayerBuilder("roads", 4096)
	roads.Add(1, geometry.LineString, []uint32{9, 0, 0, 10, 20, 20}, map[string]any{
		"class": "primary",
		"lanes": int64(2),
	})
	roads.Add(2, geometry.LineString, []uint32{9, 4, 4, 10, 6, 6}, map[string]any{
		"class":  "primary",
		"oneway": true,
	})
	water := mvt.NewLayerBuilder("water", 512)
	water.Add(7, geometry.Polygon, []uint32{9, 0, 0, 26, 10, 10, 10, 0, 0, 10, 15}, map[string]any{
		"area":  1234.5,
		"osmid": uint64(1 << 40),
		"depth": float32(2.5),
	})

	want := &mvt.Tile{Layers: []*mvt.Layer{roads.Layer(), water.Layer()}}
	data, err := mvt.Encode(want)
	require.NoError(t, err)

	got, err := mvt.Decode(data)
	require.NoError(t, err)

	// float32 values decode widened to float64.
	want.Layers[1].Values[1] = float64(float32(2.5))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode(Encode(tile)) mismatch (-want+got):\n%v", diff)
	}

	props, err := got.Layer("roads").Features[1].Properties(got.Layer("roads"))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"class": "primary", "oneway": true}, props)
	require.Nil(t, got.Layer("buildings"))
}

func TestDecodeDefaultsAndUnknownFields(t *testing.T) {
	var layer []byte
	layer = protowire.AppendTag(layer, 1, protowire.BytesType)
	layer = protowire.AppendString(layer, "poi")
	layer = protowire.AppendTag(layer, 99, protowire.VarintType)
	layer = protowire.AppendVarint(layer, 42)

	var feature []byte
	// Unpacked repeated geometry.
	for _, v := range []uint32{9, 50, 34} {
		feature = protowire.AppendTag(feature, 4, protowire.VarintType)
		feature = protowire.AppendVarint(feature, uint64(v))
	}
	feature = protowire.AppendTag(feature, 3, protowire.VarintType)
	feature = protowire.AppendVarint(feature, 1)
	layer = protowire.AppendTag(layer, 2, protowire.BytesType)
	layer = protowire.AppendBytes(layer, feature)

	data := protowire.AppendTag(nil, 3, protowire.BytesType)
	data = protowire.AppendBytes(data, layer)

	tile, err := mvt.Decode(data)
	require.NoError(t, err)
	require.Len(t, tile.Layers, 1)

	l := tile.Layers[0]
	require.Equal(t, "poi", l.Name)
	require.Equal(t, uint32(1), l.Version)
	require.Equal(t, uint32(mvt.DefaultExtent), l.Extent)
	require.Equal(t, &mvt.Feature{Type: geometry.Point, Geometry: []uint32{9, 50, 34}}, l.Features[0])
}

func TestDecodeErrors(t *testing.T) {
	truncated := protowire.AppendTag(nil, 3, protowire.BytesType)
	truncated = protowire.AppendVarint(truncated, 10)

	_, err := mvt.Decode(truncated)
	require.ErrorIs(t, err, mvt.ErrInvalidTile)

	_, err = mvt.Decode([]byte{0xff})
	require.ErrorIs(t, err, mvt.ErrInvalidTile)

	layer := &mvt.Layer{Name: "x", Keys: []string{"k"}}
	_, err = (&mvt.Feature{Tags: []uint32{0, 3}}).Properties(layer)
	require.ErrorIs(t, err, mvt.ErrInvalidTile)
	_, err = (&mvt.Feature{Tags: []uint32{0}}).Properties(layer)
	require.ErrorIs(t, err, mvt.ErrInvalidTile)
}
