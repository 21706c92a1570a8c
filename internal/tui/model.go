// Package tui is a terminal map viewer drawing resident tiles with braille
// characters.
package tui

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	table "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/eak1mov/go-vectiles/cache"
	"github.com/eak1mov/go-vectiles/interaction"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
	"github.com/paulmach/orb"
	"seehuhn.de/go/geom/vec"
)

// TickInterval is the period of cache update cycles.
const TickInterval = 50 * time.Millisecond

const (
	headerHeight = 1
	footerHeight = 2
	zoomStep     = 0.5
)

type tickMsg time.Time

// styleMsg reports a style sheet reload.
type styleMsg struct{ err error }

type Model struct {
	cache  *cache.Cache
	styles *style.Collection
	logger *slog.Logger

	screen *viewport.Screen
	zoom   float64

	width  int
	height int

	stats  cache.Stats
	status string
	err    bool

	hovering  bool
	hoverAt   vec.Vec2
	hover     []vt.Object
	showAttrs bool
	tbl       table.Model
}

// New returns a viewer of the tiles in c centered on center. logger may be nil.
func New(c *cache.Cache, styles *style.Collection, center orb.Point, zoom float64, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	screen := viewport.New(1, 1)
	screen.CenterOn(center)
	t := table.New(table.WithColumns([]table.Column{
		{Title: "layer", Width: 14},
		{Title: "id", Width: 10},
		{Title: "key", Width: 14},
		{Title: "value", Width: 24},
	}))
	return Model{
		cache:  c,
		styles: styles,
		logger: logger,
		screen: screen,
		zoom:   min(max(zoom, 0), viewport.MaxLevel),
		status: "vtiles ready",
		tbl:    t,
	}
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// mapSize returns the map area in cells.
func (m Model) mapSize() (int, int) {
	return max(m.width, 10), max(m.height-headerHeight-footerHeight, 4)
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	w, h := m.mapSize()
	m.screen.Width = float64(2 * w)
	m.screen.Height = float64(4 * h)
}

func (m *Model) refreshHover() {
	if !m.hovering {
		m.hover = nil
		return
	}
	m.hover = interaction.HoveredObjects(m.cache, m.screen, m.zoom, m.hoverAt, interaction.WithLogger(m.logger))

	var rows []table.Row
	for _, o := range m.hover {
		id := fmt.Sprint(o.ID)
		rows = append(rows, table.Row{o.Layer, id, "type", o.Type.String()})
		for _, k := range slices.Sorted(maps.Keys(o.Properties)) {
			rows = append(rows, table.Row{o.Layer, id, k, fmt.Sprint(o.Properties[k])})
		}
	}
	m.tbl.SetRows(rows)
}

func (m *Model) setZoom(zoom float64) {
	m.zoom = min(max(zoom, 0), viewport.MaxLevel)
	m.status = fmt.Sprintf("zoom: %.1f", m.zoom)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tickMsg:
		m.stats = m.cache.Update(m.screen, m.zoom, m.styles)
		m.refreshHover()
		return m, tick()
	case styleMsg:
		if msg.err != nil {
			m.status, m.err = "style: "+msg.err.Error(), true
			break
		}
		m.cache.Clear()
		m.status, m.err = "style reloaded", false
	case tea.KeyMsg:
		if m.showAttrs {
			switch msg.String() {
			case "a", "esc":
				m.showAttrs = false
				m.tbl.Blur()
				return m, nil
			case "ctrl+c", "q":
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.tbl, cmd = m.tbl.Update(msg)
			return m, cmd
		}
		stepX, stepY := m.screen.Width/8, m.screen.Height/8
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "+", "=":
			m.setZoom(m.zoom + zoomStep)
		case "-", "_":
			m.setZoom(m.zoom - zoomStep)
		case "up", "k":
			m.screen.Pan(0, -stepY, m.zoom)
		case "down", "j":
			m.screen.Pan(0, stepY, m.zoom)
		case "left", "h":
			m.screen.Pan(-stepX, 0, m.zoom)
		case "right", "l":
			m.screen.Pan(stepX, 0, m.zoom)
		case "a":
			if len(m.hover) == 0 {
				m.status = "nothing under the pointer"
				break
			}
			m.showAttrs = true
			m.tbl.Focus()
		case "r":
			m.cache.Clear()
			m.status = "tiles cleared"
		}
		m.err = false
	case tea.MouseMsg:
		w, h := m.mapSize()
		x, y := msg.X, msg.Y-headerHeight
		m.hovering = x >= 0 && x < w && y >= 0 && y < h
		if m.hovering {
			m.hoverAt = cellCenter(x, y)
		}
		m.refreshHover()
	}
	return m, nil
}
