package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/v0xg/votebot/internal/executor"
)

// CursorSize is the height of the cursor sprite
const CursorSize = 18

// RippleRadius is the outer radius of the click marker
const RippleRadius = 18

var (
	outline     = color.RGBA{0, 0, 0, 255}
	arrowFill   = color.RGBA{255, 255, 255, 255}
	pointerFill = color.RGBA{255, 236, 140, 255}
	rippleColor = color.NRGBA{66, 133, 244, 110}
)

// arrow is the cursor outline, relative to the hotspot
var arrow = []image.Point{
	{0, 0}, {0, 16}, {4, 12}, {7, 18}, {10, 17}, {7, 11}, {12, 11},
}

// Render draws each frame's click marker and cursor on a copy of its image
func Render(frames []executor.Frame) []image.Image {
	out := make([]image.Image, 0, len(frames))
	for _, f := range frames {
		if f.Image == nil {
			continue
		}
		out = append(out, drawCursorOnFrame(f.Image, f.Cursor))
	}
	return out
}

// drawCursorOnFrame creates a new image with cursor overlay
func drawCursorOnFrame(frame image.Image, pos executor.CursorPosition) image.Image {
	bounds := frame.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, frame, bounds.Min, draw.Src)

	// Not positioned yet
	if pos.X == 0 && pos.Y == 0 {
		return result
	}

	p := image.Pt(pos.X, pos.Y).Add(bounds.Min)
	if pos.Click {
		drawRipple(result, p)
	}
	drawCursor(result, p, pos.State)
	return result
}

// drawRipple blends a translucent ring around the click point
func drawRipple(img *image.RGBA, c image.Point) {
	ring := &ringMask{center: c, inner: RippleRadius - 5, outer: RippleRadius}
	draw.DrawMask(img, ring.Bounds(), image.NewUniform(rippleColor), image.Point{}, ring, ring.Bounds().Min, draw.Over)

	dot := &ringMask{center: c, inner: -1, outer: 3}
	draw.DrawMask(img, dot.Bounds(), image.NewUniform(rippleColor), image.Point{}, dot, dot.Bounds().Min, draw.Over)
}

// drawCursor fills the arrow polygon and traces its outline
func drawCursor(img *image.RGBA, at image.Point, state executor.CursorState) {
	fill := arrowFill
	if state == executor.CursorPointer {
		fill = pointerFill
	}

	for dy := 0; dy <= CursorSize; dy++ {
		for dx := 0; dx <= CursorSize; dx++ {
			if insidePolygon(arrow, dx, dy) {
				setPixelSafe(img, at.X+dx, at.Y+dy, fill)
			}
		}
	}

	for i, p1 := range arrow {
		p2 := arrow[(i+1)%len(arrow)]
		drawLine(img, at.Add(p1), at.Add(p2), outline)
	}
}

// insidePolygon is the even-odd ray casting test
func insidePolygon(poly []image.Point, x, y int) bool {
	in := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > y) != (b.Y > y) {
			cross := a.X + (y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if x < cross {
				in = !in
			}
		}
	}
	return in
}

// drawLine draws a line between two points using Bresenham's algorithm
func drawLine(img *image.RGBA, p1, p2 image.Point, c color.RGBA) {
	dx := abs(p2.X - p1.X)
	dy := abs(p2.Y - p1.Y)
	sx, sy := 1, 1
	if p1.X > p2.X {
		sx = -1
	}
	if p1.Y > p2.Y {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, p1.X, p1.Y, c)
		if p1 == p2 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			p1.X += sx
		}
		if e2 < dx {
			err += dx
			p1.Y += sy
		}
	}
}

// ringMask is an alpha mask covering the annulus inner < r <= outer
type ringMask struct {
	center       image.Point
	inner, outer int
}

func (m *ringMask) ColorModel() color.Model { return color.AlphaModel }

func (m *ringMask) Bounds() image.Rectangle {
	return image.Rect(m.center.X-m.outer, m.center.Y-m.outer, m.center.X+m.outer+1, m.center.Y+m.outer+1)
}

func (m *ringMask) At(x, y int) color.Color {
	dx, dy := x-m.center.X, y-m.center.Y
	d := dx*dx + dy*dy
	if d <= m.outer*m.outer && d > m.inner*m.inner {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
