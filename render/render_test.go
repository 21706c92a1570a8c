package render_test

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/eak1mov/go-vectiles/internal/fixture"
	"github.com/eak1mov/go-vectiles/render"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
	"github.com/stretchr/testify/require"
)

func near(t *testing.T, want, got color.NRGBA) {
	t.Helper()
	for _, d := range []int{
		int(want.R) - int(got.R), int(want.G) - int(got.G),
		int(want.B) - int(got.B), int(want.A) - int(got.A),
	} {
		if d < -3 || d > 3 {
			t.Errorf("color = %v, want %v", got, want)
			return
		}
	}
}

func TestScene(t *testing.T) {
	styles := style.NewCollection(style.DefaultSheet())
	id := tile.ID{}
	built, err := vt.Build(id, fixture.Tile(id), styles)
	require.NoError(t, err)

	screen := viewport.New(256, 256)
	canvas, err := render.Scene(screen, 0, []*vt.Tile{built}, styles)
	require.NoError(t, err)
	defer canvas.Close()

	var buf bytes.Buffer
	require.NoError(t, canvas.EncodePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, 256, img.Bounds().Dx())

	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	}
	water, err := style.ParseColor("#aad3df")
	require.NoError(t, err)
	near(t, water, at(64, 64))
	near(t, styles.Sheet().BackgroundColor(), at(192, 64))

	road, err := style.ParseColor("#f8c16a")
	require.NoError(t, err)
	near(t, road, at(64, 192))
}
