package gifgen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"sort"
	"time"

	"github.com/nfnt/resize"
)

// ErrNoFrames is returned when there is nothing to encode
var ErrNoFrames = errors.New("no frames to encode")

// Options configures GIF generation
type Options struct {
	MaxWidth   uint          // Frames wider than this are scaled down; 0 means 800
	FrameDelay time.Duration // How long each frame is shown; 0 means 1.5s
	HoldLast   time.Duration // Extra time on the last frame
}

// Generate writes frames to outputPath as a looping GIF and returns the file size
func Generate(frames []image.Image, outputPath string, opts Options) (int64, error) {
	if len(frames) == 0 {
		return 0, ErrNoFrames
	}
	if opts.MaxWidth == 0 {
		opts.MaxWidth = 800
	}
	if opts.FrameDelay == 0 {
		opts.FrameDelay = 1500 * time.Millisecond
	}

	g := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: 0,
	}

	palette := generatePalette(frames)
	for i, frame := range frames {
		scaled := scale(frame, opts.MaxWidth)

		paletted := image.NewPaletted(scaled.Bounds(), palette)
		draw.FloydSteinberg.Draw(paletted, scaled.Bounds(), scaled, scaled.Bounds().Min)

		g.Image[i] = paletted
		g.Delay[i] = centiseconds(opts.FrameDelay)
	}
	g.Delay[len(frames)-1] += centiseconds(opts.HoldLast)

	f, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := gif.EncodeAll(f, g); err != nil {
		return 0, fmt.Errorf("failed to encode GIF: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// scale shrinks img to maxWidth keeping its aspect ratio. Smaller images are kept as is.
func scale(img image.Image, maxWidth uint) image.Image {
	if uint(img.Bounds().Dx()) <= maxWidth {
		return img
	}
	return resize.Resize(maxWidth, 0, img, resize.Lanczos3)
}

func centiseconds(d time.Duration) int {
	return int(d / (10 * time.Millisecond))
}

// generatePalette builds a 256-color palette from the most common colors
// across all frames, sampling every 4th pixel.
func generatePalette(frames []image.Image) color.Palette {
	counts := make(map[color.RGBA]int)
	const step = 4

	for _, img := range frames {
		bounds := img.Bounds()
		for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
			for x := bounds.Min.X; x < bounds.Max.X; x += step {
				r, g, b, _ := img.At(x, y).RGBA()
				counts[color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}]++
			}
		}
	}

	colors := make([]color.RGBA, 0, len(counts))
	for c := range counts {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return rgbKey(colors[i]) < rgbKey(colors[j])
	})

	palette := make(color.Palette, 0, 256)
	for _, c := range colors {
		if len(palette) == 256 {
			break
		}
		palette = append(palette, c)
	}

	// Pad with grayscale
	for i := 0; len(palette) < 256; i++ {
		v := uint8(i)
		palette = append(palette, color.RGBA{v, v, v, 255})
	}
	return palette
}

func rgbKey(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
