package dataset

import (
	"image"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/ironsheep/suptools/internal/imaging"
	"github.com/pkg/errors"
)

// DefaultImageSize is the default side, in pixels, of the images yielded by a dataset.
const DefaultImageSize = 224

// ProcessOptions configures ProcessPath.
type ProcessOptions struct {
	// ClassNames used to label the image. May be empty, in which case the label is empty.
	ClassNames []string

	// ImageSize is the side of the square output image. Defaults to DefaultImageSize.
	ImageSize int

	// Augments and Mode select the augmentation chain.
	Augments *Augments
	Mode     Mode

	// Cache, if not nil, holds decoded images across calls. It is not used in ModePredict.
	Cache *imaging.ImageCache

	// Rng drives the random augmentations. If nil, one is seeded from the clock.
	Rng *rand.Rand
}

// ProcessPath loads the image at path, labels it from its parent directory, applies
// the augmentation chain of the mode and resizes it to a square of ImageSize.
func ProcessPath(path string, opts ProcessOptions) (image.Image, []bool, error) {
	label := Label(path, opts.ClassNames)

	var (
		img image.Image
		err error
	)
	if opts.Cache != nil && opts.Mode.Caches() {
		img, err = opts.Cache.Load(path)
	} else {
		img, err = imaging.Open(path)
	}
	if err != nil {
		return nil, nil, err
	}

	size := opts.ImageSize
	if size <= 0 {
		size = DefaultImageSize
	}
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	img = imaging.Apply(img, rng, opts.Augments.For(opts.Mode)...)
	return imaging.Resize(img, size), label, nil
}

// ProcessBytes decodes an encoded image (PNG, JPEG, GIF, BMP or WebP), applies
// augs, resizes it to imgSize x imgSize and returns it as a float32 tensor shaped
// [1, imgSize, imgSize, 3] with values in [0, 1], ready for prediction.
//
// A nil rng is seeded from the clock.
func ProcessBytes(data []byte, imgSize int, augs []imaging.Augmentation, rng *rand.Rand) (*tensors.Tensor, error) {
	if imgSize <= 0 {
		return nil, errors.Errorf("invalid image size %d", imgSize)
	}
	decoded, err := imaging.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	img := imaging.Resize(imaging.Apply(decoded, rng, augs...), imgSize)
	return images.ToTensor(dtypes.Float32).Batch([]image.Image{img}), nil
}
