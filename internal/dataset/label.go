package dataset

import (
	"path/filepath"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Label returns, for each class name, whether path belongs to it. A path belongs
// to a class when the name of its parent directory equals the class name, so at
// most one element is true; none is when the parent matches no class.
func Label(path string, classNames []string) []bool {
	parent := filepath.Base(filepath.Dir(path))
	label := make([]bool, len(classNames))
	for i, name := range classNames {
		label[i] = parent == name
	}
	return label
}

// OneHot converts a batch of labels into a float32 tensor shaped
// [len(labels), numClasses], with 1 where the label is true and 0 elsewhere.
func OneHot(labels [][]bool, numClasses int) (*tensors.Tensor, error) {
	flat := make([]float32, len(labels)*numClasses)
	for i, label := range labels {
		if len(label) != numClasses {
			return nil, errors.Errorf("label #%d has %d classes, expected %d", i, len(label), numClasses)
		}
		for j, v := range label {
			if v {
				flat[i*numClasses+j] = 1
			}
		}
	}
	return tensors.FromFlatDataAndDimensions(flat, len(labels), numClasses), nil
}

// ClassOf returns the class name with the largest score in row, which is
// typically one row of a one-hot label tensor or of model predictions.
// It returns "" if row is empty or all zeros.
func ClassOf(row []float32, classNames []string) string {
	best, bestScore := -1, float32(0)
	for i, score := range row {
		if i < len(classNames) && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return ""
	}
	return classNames[best]
}
