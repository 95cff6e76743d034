package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/votebot/internal/executor"
)

func gray(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{128, 128, 128, 255}), image.Point{}, draw.Src)
	return img
}

func TestRender_DrawsClickAndCursor(t *testing.T) {
	src := gray(100, 100)
	frames := Render([]executor.Frame{{
		Image:  src,
		Cursor: executor.CursorPosition{X: 50, Y: 50, State: executor.CursorPointer, Click: true},
	}})
	require.Len(t, frames, 1)
	out := frames[0]

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, out.At(50, 50), "hotspot is on the outline")
	assert.Equal(t, pointerFill, out.At(51, 55), "inside the arrow")
	assert.NotEqual(t, color.RGBA{128, 128, 128, 255}, out.At(50-RippleRadius+1, 50), "on the ripple ring")
	assert.Equal(t, color.RGBA{128, 128, 128, 255}, out.At(5, 5), "far away pixels are untouched")

	assert.Equal(t, color.RGBA{128, 128, 128, 255}, src.At(50, 50), "source frame is not modified")
}

func TestRender_UnpositionedCursor(t *testing.T) {
	frames := Render([]executor.Frame{{Image: gray(10, 10)}, {Image: nil}})
	require.Len(t, frames, 1, "frames without an image are dropped")
	assert.Equal(t, color.RGBA{128, 128, 128, 255}, frames[0].At(0, 0))
}

func TestRender_CursorNearEdge(t *testing.T) {
	frames := Render([]executor.Frame{{
		Image:  gray(20, 20),
		Cursor: executor.CursorPosition{X: 19, Y: 19, Click: true},
	}})
	require.Len(t, frames, 1)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, frames[0].At(19, 19))
}

func TestInsidePolygon(t *testing.T) {
	assert.True(t, insidePolygon(arrow, 2, 8))
	assert.False(t, insidePolygon(arrow, 12, 2))
	assert.False(t, insidePolygon(arrow, -1, 5))
}
