package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"math/rand"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// EncodedImage contains an image encoded as base64 PNG, ready to be returned by a tool.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Crop extracts the rectangular region (x1,y1)-(x2,y2), relative to the image's
// top-left corner, from an image.
func Crop(img image.Image, x1, y1, x2, y2 int) (*image.NRGBA, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if x1 < 0 || y1 < 0 || x2 > w || y2 > h {
		return nil, errors.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			x1, y1, x2, y2, w, h)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, errors.New("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	rect := image.Rect(x1, y1, x2, y2).Add(bounds.Min)
	return imaging.Crop(img, rect), nil
}

// MinDim returns the smaller of the image's width and height.
func MinDim(img image.Image) int {
	size := img.Bounds().Size()
	return min(size.X, size.Y)
}

// CenterSquare crops the largest centered square out of img: both dimensions
// of the result equal the smaller of the two input dimensions.
func CenterSquare(img image.Image) *image.NRGBA {
	side := MinDim(img)
	return imaging.CropCenter(img, side, side)
}

// RandomSquare crops a side x side square at a uniformly random position of img.
// side is clamped to [1, MinDim(img)].
func RandomSquare(img image.Image, side int, rng *rand.Rand) *image.NRGBA {
	side = max(1, min(side, MinDim(img)))
	bounds := img.Bounds()
	x0 := bounds.Min.X + rng.Intn(bounds.Dx()-side+1)
	y0 := bounds.Min.Y + rng.Intn(bounds.Dy()-side+1)
	return imaging.Crop(img, image.Rect(x0, y0, x0+side, y0+side))
}

// Resize scales img to size x size with bilinear interpolation. Aspect ratio is
// not preserved; crop first (see CenterSquare) when that matters.
func Resize(img image.Image, size int) *image.NRGBA {
	if b := img.Bounds(); b.Dx() == size && b.Dy() == size {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, size, size, imaging.Linear)
}
