package dataset

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PrefetchDataset reads batches of an ImageDataset ahead in a background
// goroutine, using a datasets.ParallelDataset with parallelism 1.
//
// A ParallelDataset whose source fails closes itself and then yields empty
// batches with no error. PrefetchDataset reports the source's first error
// instead, and its Done is safe to call after a failure or after the end of a
// finite dataset.
type PrefetchDataset struct {
	source *ImageDataset
	ahead  *datasets.ParallelDataset
}

var _ train.Dataset = (*PrefetchDataset)(nil)

// NewPrefetchDataset starts reading up to n batches of source ahead. n must be positive.
func NewPrefetchDataset(source *ImageDataset, n int) *PrefetchDataset {
	return &PrefetchDataset{
		source: source,
		ahead:  datasets.CustomParallel(source).Parallelism(1).Buffer(n - 1).Start(),
	}
}

// Source returns the dataset being read ahead.
func (pd *PrefetchDataset) Source() *ImageDataset { return pd.source }

// Name implements train.Dataset.
func (pd *PrefetchDataset) Name() string { return pd.source.Name() }

// Yield implements train.Dataset.
func (pd *PrefetchDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	spec, inputs, labels, err = pd.ahead.Yield()
	if err == nil && len(inputs) == 0 {
		if err = pd.source.Err(); err == nil {
			err = errors.Errorf("dataset %q: read-ahead stopped without data", pd.Name())
		}
	}
	return
}

// Reset implements train.Dataset. A failed dataset can't be reset: it keeps
// returning its error.
func (pd *PrefetchDataset) Reset() {
	if err := pd.source.Err(); err != nil {
		klog.Warningf("dataset %q: not reset after failure: %v", pd.Name(), err)
		return
	}
	pd.ahead.Reset()
}

// Done stops the background reading and discards the batches read ahead.
// Later calls to Yield return io.EOF.
//
// The source is stopped first, so the reading goroutine ends at its next
// batch, and the buffer is drained until the ParallelDataset reports its end.
// ParallelDataset.Done is not used: it blocks forever once a finite dataset
// was exhausted, and panics after a failure.
func (pd *PrefetchDataset) Done() {
	pd.source.stop()
	for {
		_, inputs, labels, err := pd.ahead.Yield()
		if err != nil || len(inputs) == 0 {
			return
		}
		for _, t := range append(inputs, labels...) {
			if err := t.FinalizeAll(); err != nil {
				klog.Warningf("dataset %q: failed to finalize tensor: %+v", pd.Name(), err)
			}
		}
	}
}
