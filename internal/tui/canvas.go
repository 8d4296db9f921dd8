package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/kakite/internal/model"
)

const (
	minCanvasRows = 6
	maxCanvasRows = 20
	// Rows taken by everything but the canvas: two header lines, the
	// border and the help line.
	chromeRows = 5
)

// canvas maps terminal cells of the drawing square onto [0,1]².
// Cells are about twice as tall as wide, so a square spans two columns per row.
type canvas struct {
	cols int
	rows int
}

func newCanvas(width, height int) canvas {
	rows := max(min(height-chromeRows, maxCanvasRows), minCanvasRows)
	cols := rows * 2
	if width > 0 && cols > width-2 {
		cols = max(width-2, minCanvasRows*2)
		rows = max(cols/2, 1)
	}
	return canvas{cols: cols, rows: rows}
}

// unit converts a cell relative to the canvas origin to normalized
// coordinates, clamped to the square.
func (c canvas) unit(x, y int) model.Point {
	return model.Point{
		X: clampUnit((float64(x) + 0.5) / float64(c.cols)),
		Y: clampUnit((float64(y) + 0.5) / float64(c.rows)),
	}
}

func (c canvas) contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.cols && y < c.rows
}

// cell converts normalized coordinates to a cell relative to the origin.
func (c canvas) cell(p model.Point) (int, int) {
	x := int(clampUnit(p.X) * float64(c.cols))
	y := int(clampUnit(p.Y) * float64(c.rows))
	return min(x, c.cols-1), min(y, c.rows-1)
}

type layer struct {
	strokes [][]model.Point
	style   lipgloss.Style
}

type marker struct {
	at    model.Point
	glyph string
	style lipgloss.Style
}

// render draws the layers as braille lines. Later layers take the color of
// a shared cell. The marker, when set, replaces the cell it falls in.
func (c canvas) render(layers []layer, mark *marker) string {
	masks := make([][]uint8, c.rows)
	owners := make([][]int, c.rows)
	for y := range masks {
		masks[y] = make([]uint8, c.cols)
		owners[y] = make([]int, c.cols)
		for x := range owners[y] {
			owners[y][x] = -1
		}
	}
	dot := func(i, dx, dy int) {
		cx, cy := dx/2, dy/4
		masks[cy][cx] |= brailleBit(dx%2, dy%4)
		owners[cy][cx] = i
	}
	for i, l := range layers {
		for _, stroke := range l.strokes {
			c.trace(stroke, func(dx, dy int) { dot(i, dx, dy) })
		}
	}

	markX, markY := -1, -1
	if mark != nil {
		markX, markY = c.cell(mark.at)
	}
	lines := make([]string, c.rows)
	for y := 0; y < c.rows; y++ {
		var b strings.Builder
		for x := 0; x < c.cols; x++ {
			if x == markX && y == markY {
				b.WriteString(mark.style.Render(mark.glyph))
				continue
			}
			cell := string(rune(0x2800 + int(masks[y][x])))
			if owner := owners[y][x]; owner >= 0 {
				cell = layers[owner].style.Render(cell)
			}
			b.WriteString(cell)
		}
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}

// trace visits every braille dot on the polyline through points.
func (c canvas) trace(points []model.Point, visit func(dx, dy int)) {
	dotsX, dotsY := c.cols*2, c.rows*4
	toDot := func(p model.Point) (int, int) {
		return int(math.Round(clampUnit(p.X) * float64(dotsX-1))),
			int(math.Round(clampUnit(p.Y) * float64(dotsY-1)))
	}
	for i, p := range points {
		x1, y1 := toDot(p)
		if i == 0 {
			visit(x1, y1)
			continue
		}
		x0, y0 := toDot(points[i-1])
		steps := max(abs(x1-x0), abs(y1-y0))
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			visit(x0+int(math.Round(float64(x1-x0)*t)), y0+int(math.Round(float64(y1-y0)*t)))
		}
		if steps == 0 {
			visit(x1, y1)
		}
	}
}

func brailleBit(x, y int) uint8 {
	if y == 3 {
		return 0x40 << x
	}
	return 1 << (y + 3*x)
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
