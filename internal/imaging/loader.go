package imaging

import (
	"bytes"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageExtensions lists the file extensions (lower case) of the formats that can be decoded.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

// IsImageFile reports whether path has one of the ImageExtensions, ignoring case.
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Decode reads an encoded image from r.
//
// Animated formats (GIF) yield their first frame only. The returned image is
// always converted to *image.NRGBA, so downstream code sees 3 color channels
// plus an opaque alpha regardless of the source color model.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}
	return imaging.Clone(img), nil
}

// DecodeBytes is Decode for an in-memory encoded image.
func DecodeBytes(data []byte) (*image.NRGBA, error) {
	if len(data) == 0 {
		return nil, errors.New("failed to decode image: empty input")
	}
	return Decode(bytes.NewReader(data))
}

// Open reads and decodes the image file at path, bypassing any cache.
func Open(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", path)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", path)
	}
	return img, nil
}

// ImageCache provides thread-safe caching of decoded images to avoid redundant disk reads.
//
// The cache stores decoded images keyed by their file path. Once an image
// is loaded, subsequent Load() calls for the same path return the cached copy without
// disk I/O. Cached images are shared and must be treated as read-only; every
// Augmentation returns a new image, so this holds for the dataset pipeline.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// There is no eviction policy: a dataset that does not fit in memory should be
// read without a cache.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*image.NRGBA
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*image.NRGBA),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *ImageCache) Load(path string) (*image.NRGBA, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Memory returns the number of pixel bytes held by the cache.
func (c *ImageCache) Memory() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total uint64
	for _, img := range c.images {
		total += uint64(len(img.Pix))
	}
	return total
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*image.NRGBA)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about an image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format reported by the decoder: "png", "jpeg", "gif", "bmp" or "webp".
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// FileSize is FileSizeBytes in human-readable form, e.g. "83 kB".
	FileSize string `json:"file_size"`
}

// LoadImageInfo reads the header of the image file at path and returns its metadata.
//
// Only the image configuration is decoded, so it is cheap even for large files
// and does not populate any cache.
func LoadImageInfo(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", path)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode header of %q", path)
	}
	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %q", path)
	}

	return &ImageInfo{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        format,
		FileSizeBytes: stat.Size(),
		FileSize:      humanize.Bytes(uint64(stat.Size())),
	}, nil
}
