// Package plots renders figures about image datasets and training runs as PNG
// images, using gonum.org/v1/plot: a grid preview of a dataset batch and the
// accuracy/loss curves of a training history.
package plots

import (
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// renderGrid lays out panels in a grid of the given number of rows and columns,
// in row-major order, and writes the resulting figure of size width x height as
// PNG to w. Missing panels are left blank.
func renderGrid(panels []*plot.Plot, rows, cols int, width, height vg.Length, w io.Writer) error {
	if len(panels) > rows*cols {
		return errors.Errorf("%d panels don't fit a %dx%d grid", len(panels), rows, cols)
	}
	grid := make([][]*plot.Plot, rows)
	for r := range grid {
		grid[r] = make([]*plot.Plot, cols)
		for c := range grid[r] {
			if i := r*cols + c; i < len(panels) {
				grid[r][c] = panels[i]
			} else {
				blank := plot.New()
				blank.HideAxes()
				grid[r][c] = blank
			}
		}
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(grid, tiles, dc)
	for r := range grid {
		for c := range grid[r] {
			grid[r][c].Draw(canvases[r][c])
		}
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write PNG figure")
	}
	return nil
}
