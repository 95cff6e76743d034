package gifgen

import (
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proof.gif")
	frames := []image.Image{
		solid(200, 100, color.RGBA{255, 0, 0, 255}),
		solid(200, 100, color.RGBA{0, 255, 0, 255}),
		solid(200, 100, color.RGBA{0, 0, 255, 255}),
	}

	size, err := Generate(frames, path, Options{MaxWidth: 100, FrameDelay: time.Second, HoldLast: 2 * time.Second})
	require.NoError(t, err)
	assert.Positive(t, size)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	require.Len(t, g.Image, 3)
	assert.Equal(t, []int{100, 100, 300}, g.Delay)
	assert.Equal(t, 100, g.Image[0].Bounds().Dx(), "scaled to MaxWidth")
	assert.Equal(t, 50, g.Image[0].Bounds().Dy(), "aspect ratio kept")

	r, gr, b, _ := g.Image[0].At(10, 10).RGBA()
	assert.Greater(t, r, uint32(0xf000), "frame colors are in the palette")
	assert.Less(t, gr, uint32(0x1000))
	assert.Less(t, b, uint32(0x1000))
}

func TestGenerate_SmallFramesNotUpscaled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.gif")
	_, err := Generate([]image.Image{solid(40, 30, color.White)}, path, Options{})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	g, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), g.Image[0].Bounds())
	assert.Equal(t, []int{150}, g.Delay)
}

func TestGenerate_NoFrames(t *testing.T) {
	_, err := Generate(nil, filepath.Join(t.TempDir(), "x.gif"), Options{})
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestGeneratePalette(t *testing.T) {
	p := generatePalette([]image.Image{solid(8, 8, color.RGBA{10, 20, 30, 255})})
	require.Len(t, p, 256)
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, p[0], "most common color first")
}
