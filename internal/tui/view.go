package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	w, h := m.mapSize()

	ll := m.screen.CenterLonLat()
	header := titleStyle.Render(" vtiles ") +
		dimStyle.Render(fmt.Sprintf(" %.5f, %.5f  z%.1f", ll.Lat(), ll.Lon(), m.zoom))
	header = lipgloss.NewStyle().Width(w).MaxHeight(headerHeight).Render(header)

	var body string
	if m.showAttrs {
		m.tbl.SetWidth(min(w-4, 70))
		m.tbl.SetHeight(min(h-2, 20))
		body = lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, boxStyle.Render(m.tbl.View()))
	} else {
		c := newCanvas(w, h)
		if styles, ok := m.styles.TrySnapshot(); ok {
			drawTiles(c, m.screen, m.zoom, m.cache.Tiles(), styles)
		}
		body = strings.Join(c.lines(), "\n")
	}

	status := m.status
	if m.err {
		status = errStyle.Render(status)
	}
	info := fmt.Sprintf("tiles %d/%d  loading %d", m.stats.Resident, m.stats.Required, m.stats.Pending)
	if m.hovering && len(m.hover) > 0 {
		o := m.hover[0]
		info += fmt.Sprintf("  %s #%d", o.Layer, o.ID)
		if name, ok := o.Properties["name"]; ok {
			info += fmt.Sprintf(" %v", name)
		}
		if len(m.hover) > 1 {
			info += fmt.Sprintf(" (+%d)", len(m.hover)-1)
		}
	}
	footer := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Width(w).MaxHeight(1).Render(status+"  "+dimStyle.Render(info)),
		dimStyle.Width(w).MaxHeight(1).Render("arrows/hjkl pan  +/- zoom  a attributes  r reload  q quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
