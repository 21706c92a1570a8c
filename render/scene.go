package render

import (
	"errors"

	"github.com/eak1mov/go-vectiles/paint"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
)

// Scene draws tiles, coarser levels first, onto a new canvas.
func Scene(screen *viewport.Screen, zoom float64, tiles []*vt.Tile, styles *style.Collection) (*Canvas, error) {
	canvas := NewCanvas(screen, styles.Sheet().BackgroundColor())
	snapshot := styles.Snapshot()

	var errs []error
	for i, t := range tiles {
		d := paint.NewDrawableTile(t)
		if err := canvas.Draw(zoom, d, d.Plan(snapshot, uint32(i)), snapshot); err != nil {
			errs = append(errs, err)
		}
	}
	return canvas, errors.Join(errs...)
}
