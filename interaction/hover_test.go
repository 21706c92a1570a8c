package interaction_test

import (
	"testing"

	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/interaction"
	"github.com/eak1mov/go-vectiles/internal/fixture"
	"github.com/eak1mov/go-vectiles/mvt"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

type tiles map[tile.ID]*vt.Tile

func (m tiles) TryGetTile(id tile.ID) (*vt.Tile, bool) {
	t, ok := m[id]
	return t, ok
}

func build(t *testing.T, id tile.ID, data []byte) *vt.Tile {
	t.Helper()
	built, err := vt.Build(id, data, style.NewCollection(style.DefaultSheet()))
	require.NoError(t, err)
	return built
}

func TestHoverSquare(t *testing.T) {
	l := mvt.NewLayerBuilder("landuse", mvt.DefaultExtent)
	l.Add(42, geometry.Polygon, fixture.Rect(0, 0, 2048, 2048), map[string]any{"class": "park"})
	id := tile.ID{X: 1, Y: 1, Z: 1}
	resident := tiles{id: build(t, id, fixture.Encode(l))}

	// At zoom 1 the tile is the bottom-right quarter of a 512 px world; center
	// the screen on the tile so its footprint is the whole screen.
	s := viewport.New(256, 256)
	s.Center = vec.Vec2{X: 0.75, Y: 0.75}

	got := interaction.HoveredObjects(resident, s, 1, vec.Vec2{X: 128, Y: 128})
	require.Len(t, got, 1)
	require.Equal(t, uint64(42), got[0].ID)
	require.Equal(t, "park", got[0].Properties["class"])

	require.Len(t, interaction.HoveredObjects(resident, s, 1, vec.Vec2{X: 60, Y: 60}), 1)
	require.Empty(t, interaction.HoveredObjects(resident, s, 1, vec.Vec2{X: 250, Y: 250}))

	// Outside the tile footprint.
	s.Center = vec.Vec2{X: 0.5, Y: 0.5}
	require.Empty(t, interaction.HoveredObjects(resident, s, 1, vec.Vec2{X: 10, Y: 10}))
}

func TestHoverMissingTiles(t *testing.T) {
	s := viewport.New(256, 256)
	require.Empty(t, interaction.HoveredObjects(tiles{}, s, 0, vec.Vec2{X: 128, Y: 128}))
}

func TestHoverPicksContainingTile(t *testing.T) {
	resident := tiles{}
	for id := range fixture.Pyramid(1) {
		if id.Z == 1 {
			resident[id] = build(t, id, fixture.Tile(id))
		}
	}
	s := viewport.New(512, 512)

	// The top-left quarter of tile 1/1/0 is water.
	got := interaction.HoveredObjects(resident, s, 1, vec.Vec2{X: 256 + 64, Y: 64})
	require.Len(t, got, 1)
	require.Equal(t, "water", got[0].Layer)
	require.Equal(t, "1/1/0", got[0].Properties["name"])
}
