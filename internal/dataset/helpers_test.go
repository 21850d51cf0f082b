package dataset

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	red  = color.NRGBA{255, 0, 0, 255}
	blue = color.NRGBA{0, 0, 255, 255}
)

// writePNG writes a solid-colored PNG to dir/class/name, creating directories
// as needed, and returns its path.
func writePNG(t *testing.T, dir, class, name string, width, height int, c color.Color) string {
	t.Helper()
	classDir := filepath.Join(dir, class)
	require.NoError(t, os.MkdirAll(classDir, 0o755))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(classDir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// makeDataDir creates dir/cats/{0,1,2}.png (red) and dir/dogs/{0,1,2}.png (blue),
// and returns the sorted file paths.
func makeDataDir(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	for _, class := range []struct {
		name  string
		color color.NRGBA
	}{{"cats", red}, {"dogs", blue}} {
		for _, name := range []string{"0.png", "1.png", "2.png"} {
			files = append(files, writePNG(t, dir, class.name, name, 20, 12, class.color))
		}
	}
	return files
}
