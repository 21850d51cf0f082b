// Package imaging provides the image primitives used to prepare training data:
// decoding, caching, cropping, resizing, pixel statistics and random augmentation.
//
// All operations work with standard Go image.Image types and use a coordinate system
// where (0,0) is at the top-left corner, X increases rightward, and Y increases downward.
// The pixel work itself is delegated to github.com/disintegration/imaging,
// github.com/anthonynsimon/bild and github.com/lucasb-eyer/go-colorful.
//
// # Augmentations
//
// An Augmentation is a function that takes an image and a random source and returns
// a new image. Augmentations never modify their input. They are chained with Apply:
//
//	augs := []imaging.Augmentation{
//	    imaging.RandomCrop(imaging.DefaultCropPercent),
//	    imaging.RandomFlip(true, false),
//	    imaging.RandomBrightness(imaging.DefaultMaxBrightnessDelta),
//	}
//	img = imaging.Apply(img, rng, augs...)
//
// Results are 8 bits per channel, so pixel values are always clipped to the
// valid range, which on the normalized [0,1] scale means clipping to [0,1].
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Augmentations are stateless, but
// the *rand.Rand they receive is not: each goroutine must use its own.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Invalid region specifications (x1 >= x2 or y1 >= y2)
//   - File I/O errors during image loading
//   - Undecodable image data
//   - Unknown augmentation names
package imaging
