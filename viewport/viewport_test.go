package viewport_test

import (
	"math"
	"testing"

	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestTileBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		screen viewport.Screen
		zoom   float64
		margin int
		want   []tile.ID
	}{
		{
			name:   "World",
			screen: *viewport.New(256, 256),
			zoom:   0,
			margin: 1,
			want:   []tile.ID{{X: 0, Y: 0, Z: 0}},
		},
		{
			name:   "Negative",
			screen: *viewport.New(256, 256),
			zoom:   -1,
			margin: 2,
			want:   []tile.ID{{X: 0, Y: 0, Z: 0}},
		},
		{
			name:   "Level1",
			screen: *viewport.New(512, 512),
			zoom:   1.5,
			margin: 0,
			want:   []tile.ID{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}},
		},
		{
			name:   "Margin",
			screen: viewport.Screen{Width: 100, Height: 100, Center: vec.Vec2{X: 0.5 + 1.0/32, Y: 0.5 + 1.0/32}, TileSize: 256},
			zoom:   4,
			margin: 1,
			want: []tile.ID{
				{X: 7, Y: 7, Z: 4}, {X: 7, Y: 8, Z: 4}, {X: 7, Y: 9, Z: 4},
				{X: 8, Y: 7, Z: 4}, {X: 8, Y: 8, Z: 4}, {X: 8, Y: 9, Z: 4},
				{X: 9, Y: 7, Z: 4}, {X: 9, Y: 8, Z: 4}, {X: 9, Y: 9, Z: 4},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.screen.TileBoundaries(tt.zoom, tt.margin)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TileBoundaries(%v, %d) mismatch (-want+got):\n%v", tt.zoom, tt.margin, diff)
			}
		})
	}
}

func TestTileToNDC(t *testing.T) {
	s := viewport.New(256, 256)
	m := s.TileToNDC(0, tile.ID{})

	for _, c := range []struct{ in, want vec.Vec2 }{
		{vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: -1, Y: -1}},
		{vec.Vec2{X: 1, Y: 1}, vec.Vec2{X: 1, Y: 1}},
		{vec.Vec2{X: 0.5, Y: 0.5}, vec.Vec2{X: 0, Y: 0}},
	} {
		if diff := cmp.Diff(c.want, m.Apply(c.in), approx); diff != "" {
			t.Errorf("Apply(%v) mismatch (-want+got):\n%v", c.in, diff)
		}
	}

	// The screen center lands in the middle of the tile.
	require.Equal(t, vec.Vec2{}, s.ScreenToNDC(vec.Vec2{X: 128, Y: 128}))
	require.Equal(t, vec.Vec2{X: 128, Y: 128}, s.NDCToScreen(vec.Vec2{}))

	// A child tile is half the size of its parent.
	child := s.TileToNDC(0, tile.ID{X: 1, Y: 0, Z: 1})
	if diff := cmp.Diff(vec.Vec2{X: 0, Y: -1}, child.Apply(vec.Vec2{}), approx); diff != "" {
		t.Errorf("child origin mismatch (-want+got):\n%v", diff)
	}
	if diff := cmp.Diff(vec.Vec2{X: 1, Y: 0}, child.Apply(vec.Vec2{X: 1, Y: 1}), approx); diff != "" {
		t.Errorf("child corner mismatch (-want+got):\n%v", diff)
	}
}

func TestInvert(t *testing.T) {
	s := viewport.Screen{Width: 640, Height: 480, Center: vec.Vec2{X: 0.3, Y: 0.6}, TileSize: 512}
	m := s.TileToNDC(5.3, tile.ID{X: 9, Y: 19, Z: 5})
	inv, ok := viewport.Invert(m)
	require.True(t, ok)

	for _, p := range []vec.Vec2{{X: 0, Y: 0}, {X: 0.25, Y: 0.75}, {X: -3, Y: 8}} {
		if diff := cmp.Diff(p, inv.Apply(m.Apply(p)), approx); diff != "" {
			t.Errorf("Invert round trip of %v mismatch (-want+got):\n%v", p, diff)
		}
	}

	_, ok = viewport.Invert([6]float64{1, 2, 2, 4, 0, 0})
	require.False(t, ok)
}

func TestCenterOnAndPan(t *testing.T) {
	s := viewport.New(256, 256)
	s.CenterOn(orb.Point{0, 0})
	if diff := cmp.Diff(vec.Vec2{X: 0.5, Y: 0.5}, s.Center, approx); diff != "" {
		t.Errorf("CenterOn mismatch (-want+got):\n%v", diff)
	}

	s.CenterOn(orb.Point{90, 0})
	require.InDelta(t, 0.75, s.Center.X, 1e-9)
	ll := s.CenterLonLat()
	require.InDelta(t, 90, ll.Lon(), 1e-6)
	require.InDelta(t, 0, ll.Lat(), 1e-6)

	s.Pan(-128, 0, 0)
	require.InDelta(t, 0.25, s.Center.X, 1e-9)
	s.Pan(0, -1e6, 0)
	require.Equal(t, 0.0, s.Center.Y)
	require.False(t, math.IsNaN(s.Center.X))
}
