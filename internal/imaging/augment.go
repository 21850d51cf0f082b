package imaging

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Default augmentation parameters.
const (
	// DefaultCropPercent is the side of a RandomCrop as a percentage of the image's smaller dimension.
	DefaultCropPercent = 90

	// DefaultMaxBrightnessDelta bounds the brightness shift, on the normalized [0,1] pixel scale.
	DefaultMaxBrightnessDelta = 0.3

	// DefaultContrastLower and DefaultContrastUpper bound the contrast factor.
	DefaultContrastLower = 0.0
	DefaultContrastUpper = 0.3

	// DefaultSaturationLower and DefaultSaturationUpper bound the saturation factor.
	DefaultSaturationLower = 0.7
	DefaultSaturationUpper = 1.3
)

// Augmentation transforms an image, drawing any randomness it needs from rng.
// It must not modify img.
type Augmentation func(img image.Image, rng *rand.Rand) image.Image

// Apply runs the augmentations in order.
func Apply(img image.Image, rng *rand.Rand, augs ...Augmentation) image.Image {
	for _, aug := range augs {
		img = aug(img, rng)
	}
	return img
}

// uniform returns a value uniformly distributed in [lower, upper).
func uniform(rng *rand.Rand, lower, upper float64) float64 {
	return lower + rng.Float64()*(upper-lower)
}

// RandomCrop returns an Augmentation that crops a random square whose side is
// percent% of the image's smaller dimension.
func RandomCrop(percent int) Augmentation {
	return func(img image.Image, rng *rand.Rand) image.Image {
		side := MinDim(img) * percent / 100
		return RandomSquare(img, side, rng)
	}
}

// CentralCrop returns an Augmentation that keeps the centered square of the image.
// It draws nothing from rng, and is typically the validation counterpart of RandomCrop.
func CentralCrop() Augmentation {
	return func(img image.Image, _ *rand.Rand) image.Image {
		return CenterSquare(img)
	}
}

// RandomFlip returns an Augmentation that flips the image left-right (if horiz)
// and up-down (if vert), each with probability 1/2.
func RandomFlip(horiz, vert bool) Augmentation {
	return func(img image.Image, rng *rand.Rand) image.Image {
		if horiz && rng.Intn(2) == 1 {
			img = imaging.FlipH(img)
		}
		if vert && rng.Intn(2) == 1 {
			img = imaging.FlipV(img)
		}
		return img
	}
}

// RandomBrightness returns an Augmentation that adds a delta uniformly drawn from
// [-maxDelta, maxDelta) to every color channel, on the normalized [0,1] scale.
func RandomBrightness(maxDelta float64) Augmentation {
	return func(img image.Image, rng *rand.Rand) image.Image {
		delta := uniform(rng, -maxDelta, maxDelta)
		return imaging.AdjustBrightness(img, delta*100)
	}
}

// RandomContrast returns an Augmentation that multiplies the image contrast by a
// factor uniformly drawn from [lower, upper), see AdjustContrast.
func RandomContrast(lower, upper float64) Augmentation {
	return func(img image.Image, rng *rand.Rand) image.Image {
		return AdjustContrast(img, uniform(rng, lower, upper))
	}
}

// AdjustContrast moves every channel value x to (x-mean)*factor+mean, where mean
// is the channel's mean over the whole image. A factor of 1 leaves the image
// unchanged, 0 fills it with its mean color. Alpha is preserved.
func AdjustContrast(img image.Image, factor float64) *image.RGBA {
	mean, _ := channelMoments(imaging.Clone(img))
	scale := func(v uint8, m float64) uint8 {
		f := (float64(v)/255-m)*factor + m
		return uint8(math.Round(math.Min(math.Max(f, 0), 1) * 255))
	}
	return adjust.Apply(img, func(c color.RGBA) color.RGBA {
		return color.RGBA{
			R: scale(c.R, mean[0]),
			G: scale(c.G, mean[1]),
			B: scale(c.B, mean[2]),
			A: c.A,
		}
	})
}

// RandomSaturation returns an Augmentation that multiplies the HSL saturation of
// every pixel by a factor uniformly drawn from [lower, upper).
func RandomSaturation(lower, upper float64) Augmentation {
	return func(img image.Image, rng *rand.Rand) image.Image {
		return AdjustSaturation(img, uniform(rng, lower, upper))
	}
}

// AdjustSaturation multiplies the HSL saturation of every pixel by factor.
// Alpha is preserved.
func AdjustSaturation(img image.Image, factor float64) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		c := colorful.Color{
			R: float64(dst.Pix[i]) / 255,
			G: float64(dst.Pix[i+1]) / 255,
			B: float64(dst.Pix[i+2]) / 255,
		}
		h, s, l := c.Hsl()
		s = math.Min(math.Max(s*factor, 0), 1)
		dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = colorful.Hsl(h, s, l).Clamped().RGB255()
	}
	return dst
}

// augmentationsByName maps the names accepted by ParseAugmentations to
// constructors using the default parameters.
var augmentationsByName = map[string]func() Augmentation{
	"random_crop":   func() Augmentation { return RandomCrop(DefaultCropPercent) },
	"central_crop":  CentralCrop,
	"flip":          func() Augmentation { return RandomFlip(true, false) },
	"flip_vertical": func() Augmentation { return RandomFlip(false, true) },
	"brightness":    func() Augmentation { return RandomBrightness(DefaultMaxBrightnessDelta) },
	"contrast":      func() Augmentation { return RandomContrast(DefaultContrastLower, DefaultContrastUpper) },
	"saturation":    func() Augmentation { return RandomSaturation(DefaultSaturationLower, DefaultSaturationUpper) },
}

// AugmentationNames returns the names accepted by ParseAugmentations, sorted.
func AugmentationNames() []string {
	names := make([]string, 0, len(augmentationsByName))
	for name := range augmentationsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseAugmentations converts augmentation names (e.g. from a config file) into
// Augmentations with default parameters, preserving order. Names are case-insensitive.
func ParseAugmentations(names []string) ([]Augmentation, error) {
	augs := make([]Augmentation, 0, len(names))
	for _, name := range names {
		ctor, ok := augmentationsByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Errorf("unknown augmentation %q, valid values are %v", name, AugmentationNames())
		}
		augs = append(augs, ctor())
	}
	return augs, nil
}
