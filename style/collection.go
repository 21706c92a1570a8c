package style

import (
	"image/color"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/eak1mov/go-vectiles/geometry"
)

// Style holds the paint attributes resolved for one style feature id.
type Style struct {
	ZIndex  float64
	Fill    color.NRGBA
	Outline color.NRGBA
	Visible bool
}

func (s Style) HasAlpha() bool {
	return s.Fill.A < math.MaxUint8
}

func (s Style) HasOutline() bool {
	return s.Outline.A > 0
}

// Styles is an immutable snapshot of resolved styles indexed by style feature
// id. Unknown ids resolve to an invisible style.
type Styles []Style

func (s Styles) Style(id uint32) Style {
	if int(id) >= len(s) {
		return Style{}
	}
	return s[id]
}

func (s Styles) ZIndex(id uint32) float64 { return s.Style(id).ZIndex }
func (s Styles) HasAlpha(id uint32) bool  { return s.Style(id).HasAlpha() }
func (s Styles) IsVisible(id uint32) bool { return s.Style(id).Visible }
func (s Styles) HasOutline(id uint32) bool {
	return s.Style(id).HasOutline()
}
func (s Styles) Color(id uint32) color.NRGBA        { return s.Style(id).Fill }
func (s Styles) OutlineColor(id uint32) color.NRGBA { return s.Style(id).Outline }

// Collection is the style feature table. Tile builders register features,
// painters read resolved styles, and style reloads replace the sheet.
// It is safe for concurrent use.
type Collection struct {
	mu     sync.RWMutex
	sheet  *Sheet
	zoom   float64
	dirty  bool
	ids    map[string]uint32
	rules  [][]string
	styles Styles

	logger *slog.Logger
}

type Option func(*Collection)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Collection) { c.logger = logger }
}

// NewCollection returns a collection using sheet. Id 0 is reserved for
// features no rule selects.
func NewCollection(sheet *Sheet, opts ...Option) *Collection {
	c := &Collection{
		sheet:  sheet,
		ids:    map[string]uint32{"": 0},
		rules:  [][]string{nil},
		styles: Styles{{}},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register returns the style feature id of a feature. Features selected by the
// same rules share an id.
func (c *Collection) Register(layer string, typ geometry.Type, props map[string]any) uint32 {
	c.mu.RLock()
	sheet := c.sheet
	c.mu.RUnlock()

	names, err := sheet.Match(layer, typ, props)
	if err != nil {
		c.logger.Warn("vectiles: style filter failed", "layer", layer, "type", typ, "error", err)
	}
	key := strings.Join(names, "\x00")

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[key]; ok {
		return id
	}
	id := uint32(len(c.rules))
	c.ids[key] = id
	c.rules = append(c.rules, names)
	c.styles = append(c.styles, c.resolve(names))
	return id
}

// resolve picks the first rule active at the current zoom. The caller holds mu.
func (c *Collection) resolve(names []string) Style {
	for _, name := range names {
		i, ok := c.sheet.byName[name]
		if !ok {
			continue
		}
		r := &c.sheet.Rules[i]
		if !r.inZoom(c.zoom) {
			continue
		}
		return Style{
			ZIndex:  r.ZIndex,
			Fill:    r.fill,
			Outline: r.outline,
			Visible: r.Visible == nil || *r.Visible,
		}
	}
	return Style{}
}

// LoadStyles resolves all registered ids for zoom. It does nothing when
// neither the zoom nor the sheet changed since the last call.
func (c *Collection) LoadStyles(zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if zoom == c.zoom && !c.dirty {
		return
	}
	c.zoom = zoom
	c.dirty = false
	styles := make(Styles, len(c.rules))
	for id, names := range c.rules {
		styles[id] = c.resolve(names)
	}
	c.styles = styles
}

// Apply replaces the sheet. Registered ids keep the rule names they matched;
// their attributes are taken from the new sheet on the next LoadStyles.
// Filter changes only affect features registered afterwards.
func (c *Collection) Apply(sheet *Sheet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sheet = sheet
	c.dirty = true
	c.logger.Info("vectiles: style sheet applied", "rules", len(sheet.Rules), "ids", len(c.rules))
}

func (c *Collection) Sheet() *Sheet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sheet
}

// Len returns the number of registered ids.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

// Rules returns the rule names id was registered with.
func (c *Collection) Rules(id uint32) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.rules) {
		return nil
	}
	return slices.Clone(c.rules[id])
}

// Snapshot returns the resolved styles, waiting for writers.
func (c *Collection) Snapshot() Styles {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.styles
}

// TrySnapshot is Snapshot for paths that must not block. ok is false while
// the collection is being written.
func (c *Collection) TrySnapshot() (styles Styles, ok bool) {
	if !c.mu.TryRLock() {
		return nil, false
	}
	defer c.mu.RUnlock()
	return c.styles, true
}

func (c *Collection) ZIndex(id uint32) float64 { return c.Snapshot().ZIndex(id) }
func (c *Collection) HasAlpha(id uint32) bool  { return c.Snapshot().HasAlpha(id) }
func (c *Collection) IsVisible(id uint32) bool { return c.Snapshot().IsVisible(id) }
func (c *Collection) HasOutline(id uint32) bool {
	return c.Snapshot().HasOutline(id)
}
func (c *Collection) Color(id uint32) color.NRGBA { return c.Snapshot().Color(id) }
