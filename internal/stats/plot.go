package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named sequence of values in [0,1].
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisSeparator       = " │ "
	terminalWidthBackup = 80
)

var axisLabels = [...]string{"1.0", "0.5", "0.0"}

var seriesColors = []lipgloss.Color{"6", "5", "3", "2"}

// PlotUnitSeries draws series on a shared 0..1 scale using braille cells,
// two samples per cell horizontally and four dot rows per cell vertically.
// Width and height count terminal cells; width 0 fits the terminal.
func PlotUnitSeries(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	var kept []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	dotsX, dotsY := width*2, height*4
	grids := make([][][]uint8, len(kept))
	for i, s := range kept {
		grid := make([][]uint8, height)
		for y := range grid {
			grid[y] = make([]uint8, width)
		}
		samples := resample(s.Values, dotsX)
		prevY := -1
		for x, v := range samples {
			y := int(math.Round((1 - clamp01(v)) * float64(dotsY-1)))
			if prevY < 0 {
				prevY = y
			}
			lo, hi := min(prevY, y), max(prevY, y)
			for yy := lo; yy <= hi; yy++ {
				grid[yy/4][x/2] |= brailleBit(x%2, yy%4)
			}
			prevY = y
		}
		grids[i] = grid
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	labelWidth := runewidth.StringWidth(axisLabels[0])
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = axisLabels[0]
		case height / 2:
			label = axisLabels[1]
		case height - 1:
			label = axisLabels[2]
		}
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", labelWidth, label, axisSeparator))
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for i := range grids {
				if bits := grids[i][y][x]; bits != 0 {
					mask |= bits
					if owner < 0 {
						owner = i
					}
				}
			}
			cell := string(rune(0x2800 + int(mask)))
			if useColor && owner >= 0 {
				cell = colorStyle(owner).Render(cell)
			}
			row.WriteString(cell)
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}

	legend := make([]string, 0, len(kept))
	for i, s := range kept {
		label := fmt.Sprintf("%c %s", rune(0x2800+0x3f), s.Name)
		if useColor {
			label = colorStyle(i).Render(label)
		}
		legend = append(legend, label)
	}
	_, err := fmt.Fprintf(w, "Legend: %s\n\n", strings.Join(legend, "  "))
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	axisWidth := runewidth.StringWidth(axisLabels[0]) + runewidth.StringWidth(axisSeparator)
	return max(totalWidth-axisWidth, minPlotWidth)
}

// ShouldUseColor reports whether w is a terminal and NO_COLOR is unset.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func colorStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(seriesColors[i%len(seriesColors)])
}

// resample stretches or averages values onto n samples.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	if len(values) == 0 || n == 0 {
		return out
	}
	if len(values) >= n {
		for i := range out {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			sum := 0.0
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	if len(values) == 1 || n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := range out {
		pos := float64(i) * float64(len(values)-1) / float64(n-1)
		idx := min(int(pos), len(values)-2)
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

// brailleBit maps a dot within a 2x4 braille cell to its bit.
func brailleBit(x, y int) uint8 {
	if y == 3 {
		return 0x40 << x
	}
	return 1 << (y + 3*x)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
