package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestPlotUnitSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotUnitSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{0.2, 0.4, 0.9, 0.5, 0.1}},
		{Name: "B", Values: []float64{1, 1, 0.5, 0, 0}},
		{Name: "empty"},
	}, 10, 4, false)
	if err != nil {
		t.Fatalf("PlotUnitSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Legend:") || strings.Contains(out, "empty") {
		t.Fatalf("expected legend without empty series, got %q", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1+4+1 {
		t.Fatalf("expected 6 lines of output, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1.0") || !strings.HasPrefix(lines[3], "0.5") || !strings.HasPrefix(lines[4], "0.0") {
		t.Fatalf("unexpected axis labels:\n%s", out)
	}
}

func TestPlotUnitSeriesFixedScale(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotUnitSeries(&buf, "", []Series{{Name: "full", Values: []float64{1, 1.5, 1}}}, 10, 4, false); err != nil {
		t.Fatalf("PlotUnitSeries failed: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	top := strings.TrimPrefix(lines[0], "1.0"+axisSeparator)
	if top != strings.Repeat("⠉", 10) {
		t.Fatalf("expected values at 1.0 on the top dot row, got %q", top)
	}
	bottom := strings.TrimPrefix(lines[3], "0.0"+axisSeparator)
	if bottom != strings.Repeat("⠀", 10) {
		t.Fatalf("expected empty bottom row, got %q", bottom)
	}
}

func TestPlotUnitSeriesNoData(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotUnitSeries(&buf, "Nothing", []Series{{Name: "a"}}, 10, 4, false); err != nil {
		t.Fatalf("PlotUnitSeries failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := runewidth.StringWidth(axisLabels[0]) + runewidth.StringWidth(axisSeparator)
	if got := PlotWidthFor(80); got != 80-axisWidth {
		t.Fatalf("expected width %d, got %d", 80-axisWidth, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
	if got := PlotWidthFor(12); got != minPlotWidth {
		t.Fatalf("expected narrow terminals to clamp to %d, got %d", minPlotWidth, got)
	}
}

func TestResample(t *testing.T) {
	stretched := resample([]float64{0, 1}, 3)
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(stretched[i]-want[i]) > 1e-9 {
			t.Fatalf("stretch: expected %v, got %v", want, stretched)
		}
	}
	squeezed := resample([]float64{1, 2, 3, 4}, 2)
	if squeezed[0] != 1.5 || squeezed[1] != 3.5 {
		t.Fatalf("squeeze: expected [1.5 3.5], got %v", squeezed)
	}
	single := resample([]float64{0.3}, 4)
	for _, v := range single {
		if v != 0.3 {
			t.Fatalf("expected flat line, got %v", single)
		}
	}
}
