package plots

import (
	"image"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/ironsheep/suptools/internal/dataset"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"
)

const (
	// BatchGridSide is the number of rows and columns of the ShowBatch grid.
	BatchGridSide = 5

	// batchFigureSize is the side of the ShowBatch figure.
	batchFigureSize = 10 * vg.Inch
)

// ShowBatch yields one batch from ds and renders up to BatchGridSide^2 of its
// images in a grid, each titled with its class name, as PNG to w.
//
// The dataset must yield images as its first input, shaped [batch, height, width, 3]
// with values in [0, 1], and one-hot labels as its first label. Without labels the
// images are left untitled. The yielded tensors are finalized.
func ShowBatch(ds train.Dataset, classNames []string, w io.Writer) error {
	_, inputs, labels, err := ds.Yield()
	if err != nil {
		return errors.WithMessagef(err, "failed to read a batch from %q", ds.Name())
	}
	defer func() {
		for _, t := range append(inputs, labels...) {
			if err := t.FinalizeAll(); err != nil {
				klog.Warningf("ShowBatch: failed to finalize tensor: %+v", err)
			}
		}
	}()
	if len(inputs) == 0 {
		return errors.Errorf("dataset %q yielded no images", ds.Name())
	}
	if dims := inputs[0].Shape().Dimensions; len(dims) != 4 || dims[3] != 3 {
		return errors.Errorf("dataset %q yielded images shaped %v, expected [batch, height, width, 3]", ds.Name(), dims)
	}

	imgs := images.ToImage().Batch(inputs[0])
	n := min(len(imgs), BatchGridSide*BatchGridSide)
	titles := make([]string, n)
	if len(labels) > 0 && len(classNames) > 0 {
		oneHot := tensors.MustCopyFlatData[float32](labels[0])
		numClasses := len(oneHot) / len(imgs)
		caser := cases.Title(language.English)
		for i := range titles {
			row := oneHot[i*numClasses : (i+1)*numClasses]
			titles[i] = caser.String(dataset.ClassOf(row, classNames))
		}
	}
	return RenderBatch(imgs[:n], titles, w)
}

// RenderBatch draws imgs in a BatchGridSide x BatchGridSide grid, with the
// matching titles (which may be empty), as PNG to w.
func RenderBatch(imgs []image.Image, titles []string, w io.Writer) error {
	if len(imgs) == 0 {
		return errors.New("no images to render")
	}
	if len(imgs) > BatchGridSide*BatchGridSide {
		return errors.Errorf("at most %d images can be rendered, got %d", BatchGridSide*BatchGridSide, len(imgs))
	}
	panels := make([]*plot.Plot, len(imgs))
	for i, img := range imgs {
		p := plot.New()
		p.HideAxes()
		if i < len(titles) {
			p.Title.Text = titles[i]
		}
		b := img.Bounds()
		p.Add(plotter.NewImage(img, 0, 0, float64(b.Dx()), float64(b.Dy())))
		panels[i] = p
	}
	return renderGrid(panels, BatchGridSide, BatchGridSide, batchFigureSize, batchFigureSize, w)
}
