package plots

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Keys of the metrics read from a History.
const (
	KeyAccuracy    = "accuracy"
	KeyValAccuracy = "val_accuracy"
	KeyLoss        = "loss"
	KeyValLoss     = "val_loss"
)

// historyFigureSize is the side of the PlotHistory figure.
const historyFigureSize = 8 * vg.Inch

// History holds per-epoch training metrics, keyed by metric name.
type History map[string][]float64

// LoadHistory reads a History encoded as a JSON object of metric name to
// list of per-epoch values, as written by most training loops.
func LoadHistory(r io.Reader) (History, error) {
	var h History
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return nil, errors.Wrap(err, "failed to decode training history")
	}
	return h, nil
}

// metric returns the values of key, or an error if it is missing or empty.
func (h History) metric(key string) ([]float64, error) {
	values, found := h[key]
	if !found || len(values) == 0 {
		return nil, errors.Errorf("training history has no %q values", key)
	}
	return values, nil
}

// PlotHistory renders two stacked panels as PNG to w: training and validation
// accuracy on top, training and validation cross-entropy loss below, both
// against the epoch.
func PlotHistory(h History, w io.Writer) error {
	series := make(map[string][]float64, 4)
	for _, key := range []string{KeyAccuracy, KeyValAccuracy, KeyLoss, KeyValLoss} {
		values, err := h.metric(key)
		if err != nil {
			return err
		}
		series[key] = values
	}

	accuracy := plot.New()
	accuracy.Title.Text = "Training and Validation Accuracy"
	accuracy.Y.Label.Text = "Accuracy"
	if err := plotutil.AddLines(accuracy,
		"Training Accuracy", epochXYs(series[KeyAccuracy]),
		"Validation Accuracy", epochXYs(series[KeyValAccuracy]),
	); err != nil {
		return errors.Wrap(err, "failed to plot accuracy")
	}
	accuracy.Y.Max = 1
	accuracy.Legend.Top = false // Lower right.

	loss := plot.New()
	loss.Title.Text = "Training and Validation Loss"
	loss.Y.Label.Text = "Cross Entropy"
	loss.X.Label.Text = "epoch"
	if err := plotutil.AddLines(loss,
		"Training Loss", epochXYs(series[KeyLoss]),
		"Validation Loss", epochXYs(series[KeyValLoss]),
	); err != nil {
		return errors.Wrap(err, "failed to plot loss")
	}
	loss.Y.Min, loss.Y.Max = 0, 1
	loss.Legend.Top = true // Upper right.

	return renderGrid([]*plot.Plot{accuracy, loss}, 2, 1, historyFigureSize, historyFigureSize, w)
}

// epochXYs pairs each value with its epoch index.
func epochXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(i)
		xys[i].Y = v
	}
	return xys
}
