package cache_test

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eak1mov/go-vectiles/cache"
	"github.com/eak1mov/go-vectiles/internal/fixture"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ids(s ...string) []tile.ID {
	result := make([]tile.ID, len(s))
	for i, v := range s {
		if _, err := fmt.Sscanf(v, "%d/%d/%d", &result[i].Z, &result[i].X, &result[i].Y); err != nil {
			panic(err)
		}
	}
	return result
}

func TestStaleTiles(t *testing.T) {
	resident := tile.NewSet(ids("0/0/0", "1/0/0", "1/1/1", "2/0/0", "2/3/3")...)
	required := tile.NewSet(ids("2/0/0", "2/0/1", "2/1/0", "2/1/1")...)
	previous := tile.NewSet(ids("1/0/0")...)

	got := cache.StaleTiles(resident.All(), required, previous, 1)
	slices.SortFunc(got, tile.ID.Compare)
	if diff := cmp.Diff(ids("0/0/0", "1/1/1", "2/3/3"), got); diff != "" {
		t.Errorf("StaleTiles mismatch (-want+got):\n%v", diff)
	}
}

func TestSupersededParent(t *testing.T) {
	quad := ids("2/2/2", "2/3/2", "2/3/3", "2/2/3")
	tests := []struct {
		name     string
		required []tile.ID
		resident []tile.ID
		want     bool
	}{
		{"AllFour", quad, quad, true},
		{"ThreeOfFour", quad, quad[:3], false},
		{"SiblingNotRequired", quad[:3], quad[:3], true},
		{"NoneRequired", nil, quad[:1], true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resident := tile.NewSet(tt.resident...)
			parent, ok := cache.SupersededParent(quad[0], tile.NewSet(tt.required...), resident.Contains)
			require.Equal(t, tt.want, ok)
			if ok {
				require.Equal(t, tile.ID{X: 1, Y: 1, Z: 1}, parent)
			}
		})
	}

	_, ok := cache.SupersededParent(tile.ID{}, tile.NewSet(), func(tile.ID) bool { return true })
	require.False(t, ok)
	require.Equal(t, tile.ID{Z: 1}.Children(), cache.StaleChildren(tile.ID{Z: 1}))
}

// gated blocks reads of one tile until released.
type gated struct {
	tile.Reader
	blocked tile.ID
	gate    chan struct{}
}

func (g *gated) ReadTile(id tile.ID) ([]byte, error) {
	if id == g.blocked {
		<-g.gate
	}
	return g.Reader.ReadTile(id)
}

func settle(t *testing.T, c *cache.Cache, s *viewport.Screen, zoom float64, styles cache.Styler, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !done() {
		if time.Now().After(deadline) {
			t.Fatalf("cache did not settle at zoom %v: resident %v", zoom, c.Resident())
		}
		c.Update(s, zoom, styles)
		time.Sleep(time.Millisecond)
	}
}

func TestUpdateCoverage(t *testing.T) {
	c := cache.New(tile.MapReader(fixture.Pyramid(3)), cache.WithWorkers(1))
	defer c.Close()
	styles := style.NewCollection(style.DefaultSheet())

	s := viewport.New(600, 400)
	s.Center.X, s.Center.Y = 0.3, 0.6
	const zoom = 2.5
	required := tile.NewSet(s.TileBoundaries(zoom, 1)...)
	previous := tile.NewSet(s.TileBoundaries(zoom-1, 2)...)

	for range 10000 {
		stats := c.Update(s, zoom, styles)
		require.Equal(t, len(required), stats.Required)

		for id := range required.All() {
			_, ok := c.TryGetTile(id)
			require.True(t, ok || c.Scheduled(id), "tile %v neither resident nor scheduled", id)
		}
		for _, id := range c.Resident() {
			require.True(t, required.Contains(id) || previous.Contains(id), "tile %v should be evicted", id)
		}
		if stats.Pending == 0 && stats.Resident == len(required) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if diff := cmp.Diff(required.Sorted(), c.Resident()); diff != "" {
		t.Errorf("Resident mismatch (-want+got):\n%v", diff)
	}
	for _, built := range c.Tiles() {
		require.Len(t, built.Layers, 4)
	}
}

func TestParentEviction(t *testing.T) {
	src := &gated{Reader: tile.MapReader(fixture.Pyramid(2)), blocked: tile.ID{X: 1, Y: 1, Z: 1}, gate: make(chan struct{})}
	c := cache.New(src, cache.WithWorkers(4))
	defer c.Close()
	styles := style.NewCollection(style.DefaultSheet())
	s := viewport.New(512, 512)

	settle(t, c, s, 0, styles, func() bool { return len(c.Resident()) == 1 })
	require.Equal(t, ids("0/0/0"), c.Resident())

	// Three of four children loaded: the parent stays.
	settle(t, c, s, 1, styles, func() bool { return len(c.Resident()) == 4 })
	require.Equal(t, ids("0/0/0", "1/0/0", "1/0/1", "1/1/0"), c.Resident())
	require.True(t, c.Scheduled(tile.ID{X: 1, Y: 1, Z: 1}))

	close(src.gate)
	settle(t, c, s, 1, styles, func() bool { return c.Pending() == 0 && len(c.Resident()) == 4 && c.Resident()[0].Z == 1 })
	require.Equal(t, ids("1/0/0", "1/0/1", "1/1/0", "1/1/1"), c.Resident())
}

func TestZoomOut(t *testing.T) {
	c := cache.New(tile.MapReader(fixture.Pyramid(2)))
	defer c.Close()
	styles := style.NewCollection(style.DefaultSheet())
	s := viewport.New(512, 512)

	settle(t, c, s, 1, styles, func() bool { return len(c.Resident()) == 4 })

	// Finer tiles are outside both required sets of the coarser zoom.
	stats := c.Update(s, 0, styles)
	require.Equal(t, 4, stats.Evicted)
	settle(t, c, s, 0, styles, func() bool { return len(c.Resident()) == 1 })
	require.Equal(t, ids("0/0/0"), c.Resident())
}

func TestLateResultDiscarded(t *testing.T) {
	src := &gated{Reader: tile.MapReader(fixture.Pyramid(2)), blocked: tile.ID{X: 1, Y: 1, Z: 1}, gate: make(chan struct{})}
	c := cache.New(src, cache.WithWorkers(4))
	defer c.Close()
	styles := style.NewCollection(style.DefaultSheet())
	s := viewport.New(512, 512)

	c.Update(s, 1, styles)
	require.True(t, c.Scheduled(tile.ID{X: 1, Y: 1, Z: 1}))

	settle(t, c, s, 0, styles, func() bool { return len(c.Resident()) == 1 })
	close(src.gate)
	settle(t, c, s, 0, styles, func() bool { return c.Pending() == 0 })

	require.Equal(t, ids("0/0/0"), c.Resident())
	_, ok := c.TryGetTile(tile.ID{X: 1, Y: 1, Z: 1})
	require.False(t, ok)
}

func TestMalformedTileIsNotRetried(t *testing.T) {
	var reads atomic.Int32
	src := tile.ReaderFunc(func(id tile.ID) ([]byte, error) {
		reads.Add(1)
		// A truncated varint tag.
		return []byte{0xff}, nil
	})
	c := cache.New(src, cache.WithWorkers(1))
	defer c.Close()
	styles := style.NewCollection(style.DefaultSheet())
	s := viewport.New(256, 256)

	settle(t, c, s, 0, styles, func() bool { return c.Pending() == 0 && reads.Load() > 0 })
	for range 5 {
		c.Update(s, 0, styles)
	}
	require.Empty(t, c.Resident())
	require.Equal(t, int32(1), reads.Load())
	require.Equal(t, 0, c.Pending())
}

func TestReadErrorIsRetried(t *testing.T) {
	tiles := fixture.Pyramid(0)
	var reads atomic.Int32
	src := tile.ReaderFunc(func(id tile.ID) ([]byte, error) {
		if reads.Add(1) == 1 {
			return nil, errors.New("disk on fire")
		}
		return tiles[id], nil
	})
	c := cache.New(src, cache.WithWorkers(1))
	defer c.Close()
	styles := style.NewCollection(style.DefaultSheet())
	s := viewport.New(256, 256)

	settle(t, c, s, 0, styles, func() bool { return len(c.Resident()) == 1 })
	require.Equal(t, ids("0/0/0"), c.Resident())
	require.GreaterOrEqual(t, reads.Load(), int32(2))
}

func TestClear(t *testing.T) {
	c := cache.New(tile.MapReader(fixture.Pyramid(1)))
	styles := style.NewCollection(style.DefaultSheet())
	s := viewport.New(256, 256)

	settle(t, c, s, 0, styles, func() bool { return len(c.Resident()) == 1 })
	c.Clear()
	require.Empty(t, c.Resident())
	settle(t, c, s, 0, styles, func() bool { return len(c.Resident()) == 1 })

	require.NoError(t, c.Close())
	require.Empty(t, c.Resident())
}
