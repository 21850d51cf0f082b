package imaging

import (
	"image"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// DefaultDominantColors is the number of dominant colors reported by Stats.
const DefaultDominantColors = 5

// ColorFrequency is a quantized color and the share of pixels close to it.
type ColorFrequency struct {
	Hex        string  `json:"hex"`        // "#rrggbb", quantized
	Percentage float64 `json:"percentage"` // 0-100
}

// ImageStats summarizes the pixel values of an image, on the normalized [0,1] scale
// used by the training pipeline.
type ImageStats struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Mean and Std are per channel, in R, G, B order.
	Mean [3]float64 `json:"mean"`
	Std  [3]float64 `json:"std"`

	// Dominant lists the most frequent colors, most common first.
	Dominant []ColorFrequency `json:"dominant"`
}

// Stats computes the per-channel mean and standard deviation of img, and its
// count most frequent colors.
//
// To group similar colors each channel is quantized to multiples of 16, so
// #F0F0F0 and #FAFAFA count as the same color. Ties are broken by hex value,
// which keeps the result deterministic.
func Stats(img *image.NRGBA, count int) (*ImageStats, error) {
	bounds := img.Bounds()
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return nil, errors.New("cannot compute statistics of an empty image")
	}
	if count <= 0 {
		count = DefaultDominantColors
	}

	stats := &ImageStats{Width: bounds.Dx(), Height: bounds.Dy()}
	stats.Mean, stats.Std = channelMoments(img)

	counts := make(map[[3]uint8]int)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):]
		for x := 0; x < bounds.Dx(); x++ {
			px := row[4*x : 4*x+3]
			counts[[3]uint8{px[0] / 16 * 16, px[1] / 16 * 16, px[2] / 16 * 16}]++
		}
	}

	stats.Dominant = make([]ColorFrequency, 0, len(counts))
	for key, cnt := range counts {
		c := colorful.Color{R: float64(key[0]) / 255, G: float64(key[1]) / 255, B: float64(key[2]) / 255}
		stats.Dominant = append(stats.Dominant, ColorFrequency{
			Hex:        c.Hex(),
			Percentage: float64(cnt) / float64(n) * 100,
		})
	}
	sort.Slice(stats.Dominant, func(i, j int) bool {
		a, b := stats.Dominant[i], stats.Dominant[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		return a.Hex < b.Hex
	})
	if len(stats.Dominant) > count {
		stats.Dominant = stats.Dominant[:count]
	}
	return stats, nil
}

// channelMoments returns the per-channel mean and standard deviation of img,
// in R, G, B order, on the [0,1] scale. Both are 0 for an empty image.
func channelMoments(img *image.NRGBA) (mean, std [3]float64) {
	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return
	}
	var sum, sumSq [3]float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):]
		for x := 0; x < bounds.Dx(); x++ {
			for c, v := range row[4*x : 4*x+3] {
				f := float64(v) / 255
				sum[c] += f
				sumSq[c] += f * f
			}
		}
	}
	for c := range sum {
		mean[c] = sum[c] / n
		std[c] = math.Sqrt(math.Max(sumSq[c]/n-mean[c]*mean[c], 0))
	}
	return
}
