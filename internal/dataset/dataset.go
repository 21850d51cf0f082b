package dataset

import (
	"fmt"
	"image"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/ironsheep/suptools/internal/imaging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Default dataset parameters.
const (
	DefaultBatchSize = 32
	DefaultWorkers   = 4
)

// Config configures an ImageDataset.
type Config struct {
	// Name of the dataset, used in logs and errors. Defaults to "images/<mode>".
	Name string

	// ClassNames used for labels. If empty, no labels are yielded.
	ClassNames []string

	// ImageSize is the side of the square images yielded.
	ImageSize int

	// BatchSize is the number of images per yielded batch.
	BatchSize int

	// Workers is the maximum number of images processed in parallel.
	Workers int

	// ShuffleSize is the size of the shuffle buffer in ModeTrain. A value <= 0,
	// or larger than the number of files, shuffles each epoch fully.
	ShuffleSize int

	// Augments holds the augmentation chains. Nil means no augmentation.
	Augments *Augments

	// Mode selects caching, shuffling and which augmentation chain is used.
	Mode Mode

	// Repeat makes the dataset loop over the files indefinitely. Otherwise Yield
	// returns io.EOF at the end of the files, after a last possibly smaller batch.
	Repeat bool

	// Prefetch is the number of batches ReadImageDataset reads ahead. 0 disables read-ahead.
	Prefetch int

	// Seed for shuffling and augmentations. 0 means seeded from the clock.
	Seed int64
}

// DefaultConfig returns the default configuration for a training dataset.
func DefaultConfig() Config {
	return Config{
		ImageSize: DefaultImageSize,
		BatchSize: DefaultBatchSize,
		Workers:   DefaultWorkers,
		Augments:  DefaultAugments(),
		Mode:      ModeTrain,
		Repeat:    true,
		Prefetch:  DefaultBatchSize,
	}
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.ImageSize <= 0 {
		return errors.Errorf("image size must be positive, got %d", c.ImageSize)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Workers <= 0 {
		return errors.Errorf("number of workers must be positive, got %d", c.Workers)
	}
	if c.Prefetch < 0 {
		return errors.Errorf("prefetch must be >= 0, got %d", c.Prefetch)
	}
	if c.Mode < ModeTrain || c.Mode > ModePredict {
		return errors.Errorf("invalid dataset mode %s", c.Mode)
	}
	return nil
}

// ImageDataset implements train.Dataset over a list of image files.
//
// Each Yield takes the next BatchSize files, processes them in parallel
// (see ProcessPath) and returns the images as a float32 tensor shaped
// [batch, ImageSize, ImageSize, 3] in inputs[0] and, if class names were
// given, the one-hot labels shaped [batch, len(ClassNames)] in labels[0].
//
// It is safe for concurrent use.
type ImageDataset struct {
	cfg   Config
	name  string
	paths []string
	cache *imaging.ImageCache
	seed  int64

	mu    sync.Mutex
	rng   *rand.Rand
	order []int
	pos   int
	epoch int

	// err is the first Yield failure since the last Reset.
	err error
	// stopped is set by PrefetchDataset.Done: from then on Yield returns io.EOF.
	stopped bool
}

var _ train.Dataset = (*ImageDataset)(nil)

// NewImageDataset creates an ImageDataset over paths, which must be image files.
func NewImageDataset(paths []string, cfg Config) (*ImageDataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no image files given to the dataset")
	}
	ds := &ImageDataset{
		cfg:   cfg,
		name:  cfg.Name,
		paths: append([]string(nil), paths...),
		seed:  cfg.Seed,
	}
	if ds.name == "" {
		ds.name = "images/" + cfg.Mode.String()
	}
	if ds.seed == 0 {
		ds.seed = time.Now().UnixNano()
	}
	if cfg.Mode.Caches() {
		ds.cache = imaging.NewImageCache()
	}
	ds.Reset()
	klog.V(1).Infof("dataset %q: %d files, %d classes, batch size %d", ds.name, len(ds.paths), len(cfg.ClassNames), cfg.BatchSize)
	return ds, nil
}

// ReadImageDataset creates a dataset from paths, which can be image files,
// directories (read recursively) or glob patterns.
//
// If cfg.Prefetch is 0 it returns the *ImageDataset. Otherwise it returns a
// *PrefetchDataset reading cfg.Prefetch batches ahead in the background, which
// should be stopped with its Done method when no longer needed.
func ReadImageDataset(paths []string, cfg Config) (train.Dataset, error) {
	files, err := ExpandPaths(paths)
	if err != nil {
		return nil, err
	}
	ds, err := NewImageDataset(files, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Prefetch <= 0 {
		return ds, nil
	}
	return NewPrefetchDataset(ds, cfg.Prefetch), nil
}

// Name implements train.Dataset.
func (ds *ImageDataset) Name() string { return ds.name }

// Len returns the number of files in the dataset.
func (ds *ImageDataset) Len() int { return len(ds.paths) }

// Cache returns the decoded image cache, or nil if the mode doesn't cache.
func (ds *ImageDataset) Cache() *imaging.ImageCache { return ds.cache }

// Epoch returns the current epoch, starting at 1 once the first batch is yielded.
func (ds *ImageDataset) Epoch() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.epoch
}

// Err returns the first error returned by Yield since the last Reset, if any.
func (ds *ImageDataset) Err() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.err
}

// Reset implements train.Dataset. It restarts from the first epoch with the
// original seed, so a reset dataset yields the same sequence again. Cached
// images are kept, and the recorded error is cleared.
func (ds *ImageDataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.rng = rand.New(rand.NewSource(ds.seed))
	ds.order = nil
	ds.pos = 0
	ds.epoch = 0
	ds.err = nil
}

// stop makes every later Yield return io.EOF.
func (ds *ImageDataset) stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.stopped = true
}

// fail records err as the first failure, unless the dataset was stopped, in
// which case io.EOF is returned instead of err.
func (ds *ImageDataset) fail(err error) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.stopped {
		return io.EOF
	}
	if ds.err == nil {
		ds.err = err
	}
	return err
}

// Yield implements train.Dataset.
func (ds *ImageDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	paths, seeds, err := ds.nextPaths()
	if err != nil {
		return nil, nil, nil, err
	}
	defer func() {
		if err != nil {
			err = ds.fail(err)
		}
	}()

	imgs := make([]image.Image, len(paths))
	batchLabels := make([][]bool, len(paths))
	var g errgroup.Group
	g.SetLimit(ds.cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			img, label, err := ProcessPath(path, ProcessOptions{
				ClassNames: ds.cfg.ClassNames,
				ImageSize:  ds.cfg.ImageSize,
				Augments:   ds.cfg.Augments,
				Mode:       ds.cfg.Mode,
				Cache:      ds.cache,
				Rng:        rand.New(rand.NewSource(seeds[i])),
			})
			if err != nil {
				return errors.WithMessagef(err, "dataset %q", ds.name)
			}
			imgs[i], batchLabels[i] = img, label
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	inputs = []*tensors.Tensor{images.ToTensor(dtypes.Float32).Batch(imgs)}
	if numClasses := len(ds.cfg.ClassNames); numClasses > 0 {
		oneHot, err := OneHot(batchLabels, numClasses)
		if err != nil {
			return nil, nil, nil, err
		}
		labels = []*tensors.Tensor{oneHot}
	}
	return nil, inputs, labels, nil
}

// nextPaths returns the paths of the next batch, and one random seed per path
// for its augmentations. Batches span epoch boundaries when repeating.
func (ds *ImageDataset) nextPaths() (paths []string, seeds []int64, err error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.stopped {
		return nil, nil, io.EOF
	}
	for len(paths) < ds.cfg.BatchSize {
		if ds.pos >= len(ds.order) {
			if ds.epoch > 0 && !ds.cfg.Repeat {
				break
			}
			ds.newEpoch()
		}
		paths = append(paths, ds.paths[ds.order[ds.pos]])
		seeds = append(seeds, ds.rng.Int63())
		ds.pos++
	}
	if len(paths) == 0 {
		return nil, nil, io.EOF
	}
	return paths, seeds, nil
}

// newEpoch starts a new pass over the files. It must be called with ds.mu locked.
func (ds *ImageDataset) newEpoch() {
	ds.epoch++
	ds.pos = 0
	n := len(ds.paths)
	if !ds.cfg.Mode.Shuffles() {
		if ds.order == nil {
			ds.order = make([]int, n)
			for i := range ds.order {
				ds.order[i] = i
			}
		}
		return
	}
	ds.order = bufferShuffle(n, ds.cfg.ShuffleSize, ds.rng)
	klog.V(2).Infof("dataset %q: starting epoch %d", ds.name, ds.epoch)
}

// bufferShuffle returns a permutation of [0, n) produced the way a streaming
// shuffle buffer of the given size would: each element out is drawn uniformly
// from the buffer, whose slot is then refilled with the next index in order.
// A size <= 0 or >= n gives a uniform permutation.
func bufferShuffle(n, size int, rng *rand.Rand) []int {
	if size <= 0 || size >= n {
		return rng.Perm(n)
	}
	order := make([]int, 0, n)
	buffer := make([]int, size)
	for i := range buffer {
		buffer[i] = i
	}
	next := size
	for len(buffer) > 0 {
		j := rng.Intn(len(buffer))
		order = append(order, buffer[j])
		if next < n {
			buffer[j] = next
			next++
		} else {
			buffer[j] = buffer[len(buffer)-1]
			buffer = buffer[:len(buffer)-1]
		}
	}
	return order
}

// String implements fmt.Stringer.
func (ds *ImageDataset) String() string {
	return fmt.Sprintf("ImageDataset(%q, %d files, mode=%s)", ds.name, len(ds.paths), ds.cfg.Mode)
}
