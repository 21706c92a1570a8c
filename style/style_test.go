package style_test

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testSheet = `
background: black
rules:
  - name: lake
    layer: water
    filter: props.class == "lake"
    z_index: 3
    color: "#0000ff"
    outline: "#000080"
  - name: water
    layer: water
    type: polygon
    z_index: 2
    color: "#0000ff80"
  - name: road
    layer: roads
    type: linestring
    filter: props.lanes >= 2
    min_zoom: 10
    z_index: 7
    color: red
  - name: hidden
    layer: labels
    visible: false
`

func parse(t *testing.T, data string) *style.Sheet {
	t.Helper()
	sheet, err := style.ParseSheet([]byte(data))
	require.NoError(t, err)
	return sheet
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"", color.NRGBA{}},
		{"#fff", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{"#102030", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}},
		{"#10203040", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}},
		{"Red", color.NRGBA{R: 255, A: 255}},
	}
	for _, tt := range tests {
		got, err := style.ParseColor(tt.in)
		require.NoError(t, err, "ParseColor(%q)", tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseColor(%q) mismatch (-want+got):\n%v", tt.in, diff)
		}
	}

	for _, in := range []string{"#12", "#gggggg", "nocolor"} {
		_, err := style.ParseColor(in)
		require.ErrorIs(t, err, style.ErrInvalidColor, "ParseColor(%q)", in)
	}
}

func TestParseSheetErrors(t *testing.T) {
	for name, data := range map[string]string{
		"Yaml":      "rules: [",
		"Duplicate": "rules: [{name: a}, {name: a}]",
		"Type":      "rules: [{type: circle}]",
		"Color":     "rules: [{color: nocolor}]",
		"Filter":    "rules: [{filter: 'props.('}]",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := style.ParseSheet([]byte(data))
			require.ErrorIs(t, err, style.ErrInvalidSheet)
		})
	}
}

func TestDefaultSheet(t *testing.T) {
	sheet := style.DefaultSheet()
	require.NotEmpty(t, sheet.Rules)

	names, err := sheet.Match("landuse", geometry.Polygon, map[string]any{"class": "park"})
	require.NoError(t, err)
	require.Equal(t, []string{"landuse-park", "landuse"}, names)
}

func TestMatch(t *testing.T) {
	sheet := parse(t, testSheet)
	tests := []struct {
		name  string
		layer string
		typ   geometry.Type
		props map[string]any
		want  []string
	}{
		{"Lake", "water", geometry.Polygon, map[string]any{"class": "lake"}, []string{"lake", "water"}},
		{"Sea", "water", geometry.Polygon, map[string]any{"class": "sea"}, []string{"water"}},
		{"MissingProperty", "water", geometry.Polygon, nil, []string{"water"}},
		{"Road", "roads", geometry.LineString, map[string]any{"lanes": uint64(4)}, []string{"road"}},
		{"Lane", "roads", geometry.LineString, map[string]any{"lanes": int64(1)}, nil},
		{"OtherLayer", "pois", geometry.Point, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sheet.Match(tt.layer, tt.typ, tt.props)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Match mismatch (-want+got):\n%v", diff)
			}
		})
	}
}

func TestCollection(t *testing.T) {
	c := style.NewCollection(parse(t, testSheet))

	lake := c.Register("water", geometry.Polygon, map[string]any{"class": "lake"})
	sea := c.Register("water", geometry.Polygon, map[string]any{"class": "sea"})
	ocean := c.Register("water", geometry.Polygon, map[string]any{"class": "ocean"})
	road := c.Register("roads", geometry.LineString, map[string]any{"lanes": int64(2)})
	label := c.Register("labels", geometry.Point, nil)
	none := c.Register("pois", geometry.Point, nil)

	require.NotEqual(t, lake, sea)
	require.Equal(t, sea, ocean)
	require.Equal(t, uint32(0), none)
	require.Equal(t, 5, c.Len())
	require.Equal(t, []string{"lake", "water"}, c.Rules(lake))

	require.Equal(t, 3.0, c.ZIndex(lake))
	require.False(t, c.HasAlpha(lake))
	require.True(t, c.HasOutline(lake))
	require.True(t, c.HasAlpha(sea))
	require.False(t, c.HasOutline(sea))
	require.False(t, c.IsVisible(label))
	require.False(t, c.IsVisible(none))

	// Roads appear from zoom 10.
	require.False(t, c.IsVisible(road))
	c.LoadStyles(12)
	require.True(t, c.IsVisible(road))
	require.Equal(t, color.NRGBA{R: 255, A: 255}, c.Color(road))

	styles, ok := c.TrySnapshot()
	require.True(t, ok)
	require.False(t, styles.IsVisible(1000))

	// A new sheet recolours registered ids on the next LoadStyles.
	c.Apply(parse(t, `rules: [{name: lake, color: green, z_index: 1}]`))
	require.Equal(t, 3.0, c.ZIndex(lake))
	c.LoadStyles(12)
	require.Equal(t, 1.0, c.ZIndex(lake))
	require.False(t, c.IsVisible(sea))
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSheet), 0o644))
	c := style.NewCollection(parse(t, testSheet))
	lake := c.Register("water", geometry.Polygon, map[string]any{"class": "lake"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan error, 16)
	done := make(chan error, 1)
	go func() { done <- style.Watch(ctx, path, c, func(err error) { reloaded <- err }) }()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`rules: [{name: lake, z_index: 9, color: blue}]`), 0o644))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("style sheet was not reloaded")
	}
	c.LoadStyles(0)
	require.Equal(t, 9.0, c.ZIndex(lake))

	cancel()
	require.NoError(t, <-done)
}
