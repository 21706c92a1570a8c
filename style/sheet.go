// Package style assigns paint attributes to vector tile features.
//
// A Sheet is a YAML list of rules. Features are matched against rules when
// tiles are built; features matching the same rules share a style feature id,
// whose attributes are resolved for the current zoom by Collection.LoadStyles.
package style

import (
	_ "embed"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/eak1mov/go-vectiles/geometry"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidSheet = errors.New("vectiles: invalid style sheet")
	ErrInvalidColor = errors.New("vectiles: invalid color")
)

//go:embed default.yaml
var defaultSheet []byte

// Rule selects features by layer, geometry type and an optional filter
// expression, and gives them paint attributes within a zoom range.
//
// Filter is a tengo expression evaluated with the variables props (the
// feature properties), layer and type; the rule matches when it is truthy.
type Rule struct {
	Name    string   `yaml:"name"`
	Layer   string   `yaml:"layer"`
	Type    string   `yaml:"type"`
	Filter  string   `yaml:"filter"`
	MinZoom *float64 `yaml:"min_zoom"`
	MaxZoom *float64 `yaml:"max_zoom"`
	ZIndex  float64  `yaml:"z_index"`
	Color   string   `yaml:"color"`
	Outline string   `yaml:"outline"`
	Visible *bool    `yaml:"visible"`

	typ     geometry.Type
	fill    color.NRGBA
	outline color.NRGBA
	filter  *tengo.Compiled
}

type Sheet struct {
	Background string `yaml:"background"`
	Rules      []Rule `yaml:"rules"`

	background color.NRGBA
	byName     map[string]int

	// Compiled filters are not safe for concurrent use.
	filterMu sync.Mutex
}

// DefaultSheet returns the built-in sheet.
func DefaultSheet() *Sheet {
	s, err := ParseSheet(defaultSheet)
	if err != nil {
		panic(err)
	}
	return s
}

func LoadSheet(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSheet(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func ParseSheet(data []byte) (*Sheet, error) {
	s := &Sheet{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSheet, err)
	}

	var err error
	if s.background, err = ParseColor(s.Background); err != nil {
		return nil, fmt.Errorf("%w: background: %w", ErrInvalidSheet, err)
	}

	s.byName = make(map[string]int, len(s.Rules))
	for i := range s.Rules {
		r := &s.Rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("%s#%d", r.Layer, i)
		}
		if _, ok := s.byName[r.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate rule %q", ErrInvalidSheet, r.Name)
		}
		s.byName[r.Name] = i
		if err := r.compile(); err != nil {
			return nil, fmt.Errorf("%w: rule %q: %w", ErrInvalidSheet, r.Name, err)
		}
	}
	return s, nil
}

// BackgroundColor returns the map background, transparent if unset.
func (s *Sheet) BackgroundColor() color.NRGBA {
	return s.background
}

func parseType(name string) (geometry.Type, error) {
	switch strings.ToLower(name) {
	case "":
		return geometry.Unknown, nil
	case "point":
		return geometry.Point, nil
	case "linestring", "line":
		return geometry.LineString, nil
	case "polygon":
		return geometry.Polygon, nil
	}
	return geometry.Unknown, fmt.Errorf("unknown geometry type %q", name)
}

func (r *Rule) compile() (err error) {
	if r.typ, err = parseType(r.Type); err != nil {
		return err
	}
	if r.fill, err = ParseColor(r.Color); err != nil {
		return err
	}
	if r.outline, err = ParseColor(r.Outline); err != nil {
		return err
	}
	if strings.TrimSpace(r.Filter) == "" {
		return nil
	}

	script := tengo.NewScript([]byte("__match := (" + r.Filter + ")"))
	script.SetImports(stdlib.GetModuleMap("text", "math"))
	_ = script.Add("props", map[string]any{})
	_ = script.Add("layer", "")
	_ = script.Add("type", "")
	r.filter, err = script.Compile()
	return err
}

func (r *Rule) inZoom(zoom float64) bool {
	return (r.MinZoom == nil || zoom >= *r.MinZoom) && (r.MaxZoom == nil || zoom < *r.MaxZoom)
}

// matches reports whether r selects the feature. The caller holds filterMu.
func (r *Rule) matches(layer string, typ geometry.Type, props map[string]any) (bool, error) {
	if r.Layer != "" && r.Layer != layer {
		return false, nil
	}
	if r.typ != geometry.Unknown && r.typ != typ {
		return false, nil
	}
	if r.filter == nil {
		return true, nil
	}

	values := make(map[string]any, len(props))
	for k, v := range props {
		values[k] = scriptValue(v)
	}
	if err := r.filter.Set("props", values); err != nil {
		return false, err
	}
	if err := r.filter.Set("layer", layer); err != nil {
		return false, err
	}
	if err := r.filter.Set("type", typ.String()); err != nil {
		return false, err
	}
	if err := r.filter.Run(); err != nil {
		return false, err
	}
	return r.filter.Get("__match").Bool(), nil
}

// scriptValue converts property values to types tengo understands.
func scriptValue(v any) any {
	switch v := v.(type) {
	case uint64:
		if v > 1<<63-1 {
			return float64(v)
		}
		return int64(v)
	case float32:
		return float64(v)
	}
	return v
}

// Match returns the names of the rules selecting the feature, in sheet order.
// Filters that fail to evaluate do not match.
func (s *Sheet) Match(layer string, typ geometry.Type, props map[string]any) ([]string, error) {
	s.filterMu.Lock()
	defer s.filterMu.Unlock()

	var names []string
	var errs []error
	for i := range s.Rules {
		r := &s.Rules[i]
		ok, err := r.matches(layer, typ, props)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %q: %w", r.Name, err))
			continue
		}
		if ok {
			names = append(names, r.Name)
		}
	}
	return names, errors.Join(errs...)
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa and CSS color names. The empty
// string is transparent.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "transparent" {
		return color.NRGBA{}, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
