package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/tdsim/internal/analysis"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille dot grid of Width x Height cells, i.e.
// 2*Width x 4*Height dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
	return c
}

// Set turns on dot (x, y); y grows downwards. Dots outside the grid are
// ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// bounds is the data rectangle mapped onto a canvas.
type bounds struct {
	xMin, xMax, yMin, yMax float64
}

func boundsOf(points []analysis.Point) bounds {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, p := range points {
		b.xMin, b.xMax = math.Min(b.xMin, p.X), math.Max(b.xMax, p.X)
		b.yMin, b.yMax = math.Min(b.yMin, p.Y), math.Max(b.yMax, p.Y)
	}
	if b.xMax == b.xMin {
		b.xMin, b.xMax = b.xMin-1, b.xMax+1
	}
	if b.yMax == b.yMin {
		b.yMin, b.yMax = b.yMin-1, b.yMax+1
	}
	return b
}

func (c *Canvas) dot(b bounds, p analysis.Point) (int, int) {
	w, h := float64(2*c.Width-1), float64(4*c.Height-1)
	x := int(math.Round(w * (p.X - b.xMin) / (b.xMax - b.xMin)))
	y := int(math.Round(h * (b.yMax - p.Y) / (b.yMax - b.yMin)))
	return x, y
}

// Trace joins consecutive points with lines, scaled to fill the canvas.
func (c *Canvas) Trace(points []analysis.Point) {
	if len(points) == 0 {
		return
	}
	b := boundsOf(points)
	x0, y0 := c.dot(b, points[0])
	c.Set(x0, y0)
	for _, p := range points[1:] {
		x1, y1 := c.dot(b, p)
		c.DrawLine(x0, y0, x1, y1)
		x0, y0 = x1, y1
	}
}

// PhaseCanvas renders a phase portrait as a framed braille trace with the
// axis ranges printed on the frame.
func PhaseCanvas(p *analysis.PhasePortrait2D, width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 1 || height < 1 {
		return ""
	}
	c := NewCanvas(width, height)
	c.Trace(p.Points)
	b := boundsOf(p.Points)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%9.2f ┌%s┐\n", b.yMax, strings.Repeat("─", width))
	for i, row := range c.Grid {
		label := strings.Repeat(" ", 9)
		if i == height-1 {
			label = fmt.Sprintf("%9.2f", b.yMin)
		}
		fmt.Fprintf(&sb, "%s │%s│\n", label, string(row))
	}
	fmt.Fprintf(&sb, "%9s └%s┘\n", "", strings.Repeat("─", width))
	fmt.Fprintf(&sb, "%9s  %-*.2f%.2f\n", "", max(0, width-6), b.xMin, b.xMax)
	if p.XLabel != "" || p.YLabel != "" {
		fmt.Fprintf(&sb, "%9s  x: %s  y: %s\n", "", p.XLabel, p.YLabel)
	}
	return sb.String()
}
