package tui

import (
	"image/color"
	"strings"
	"testing"
	"time"

	table "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/eak1mov/go-vectiles/cache"
	"github.com/eak1mov/go-vectiles/internal/fixture"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/vec"
)

func TestCanvasDots(t *testing.T) {
	c := newCanvas(2, 1)
	red := color.NRGBA{R: 255, A: 255}
	c.set(0, 0, red)
	c.set(1, 3, red)
	c.set(2, 1, red)
	c.set(-1, 0, red)
	c.set(4, 0, red)

	if diff := cmp.Diff([][]uint8{{0x81, 0x02}}, c.mask); diff != "" {
		t.Errorf("mask mismatch (-want+got):\n%v", diff)
	}
	lines := c.lines()
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], string(rune(0x2881)))
	require.Contains(t, lines[0], string(rune(0x2802)))
}

func TestCanvasShapes(t *testing.T) {
	c := newCanvas(4, 2)
	black := color.NRGBA{A: 255}
	c.line(vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 7, Y: 0}, black)
	for x := range 4 {
		require.Equal(t, uint8(0x09), c.mask[0][x], "cell %d", x)
	}

	c = newCanvas(4, 2)
	c.triangle([3]vec.Vec2{{X: 0, Y: 0}, {X: 8, Y: 0}, {X: 0, Y: 8}}, black)
	require.Equal(t, uint8(0xff), c.mask[0][0])
	require.Equal(t, uint8(0x00), c.mask[1][3])
}

func TestHex(t *testing.T) {
	require.Equal(t, "#f8c16a", hex(color.NRGBA{R: 0xf8, G: 0xc1, B: 0x6a, A: 0xff}))
}

func settle(t *testing.T, m Model) Model {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		next, _ := m.Update(tickMsg(time.Now()))
		m = next.(Model)
		if m.stats.Resident > 0 && m.stats.Pending == 0 {
			return m
		}
		if time.Now().After(deadline) {
			t.Fatalf("tiles did not load: %+v", m.stats)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestModel(t *testing.T) {
	c := cache.New(tile.MapReader(fixture.Pyramid(1)), cache.WithWorkers(2))
	defer c.Close()
	styles := style.NewCollection(style.DefaultSheet())

	var m tea.Model = New(c, styles, orb.Point{0, 0}, 0, nil)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 13})
	model := settle(t, m.(Model))
	require.Equal(t, 1, model.stats.Resident)

	view := model.View()
	require.True(t, strings.ContainsFunc(view, func(r rune) bool { return r > 0x2800 && r <= 0x28ff }), view)

	m, _ = model.Update(tea.MouseMsg{X: 15, Y: 3 + headerHeight})
	model = m.(Model)
	require.NotEmpty(t, model.hover)
	require.Equal(t, "water", model.hover[0].Layer)
	require.Equal(t, "0/0/0", model.hover[0].Properties["name"])

	m, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	model = m.(Model)
	require.True(t, model.showAttrs)
	require.Contains(t, model.tbl.Rows(), table.Row{"water", "1", "class", "lake"})
	require.NotEmpty(t, model.View())

	m, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	model = m.(Model)
	require.False(t, model.showAttrs)

	m, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	require.Equal(t, 0.5, m.(Model).zoom)

	m, _ = model.Update(tea.MouseMsg{X: 15, Y: 0})
	require.Empty(t, m.(Model).hover)
}
