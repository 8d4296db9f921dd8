// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/kakite/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SuccessRate returns the share of completed practices that succeeded.
func SuccessRate(p model.CharacterProgress) float64 {
	if p.Attempts == 0 {
		return 0
	}
	return float64(p.Successes) / float64(p.Attempts)
}

// FirstTryAccuracy returns how often a stroke was right on its first try.
// Characters without first tries count as fully accurate.
func FirstTryAccuracy(agg model.CharAggregate) float64 {
	if agg.FirstTryTotal == 0 {
		return 1.0
	}
	return float64(agg.FirstTryValid) / float64(agg.FirstTryTotal)
}

// MeanConfidence returns the average validator confidence of the attempts.
func MeanConfidence(agg model.CharAggregate) float64 {
	if agg.ConfidenceSeen == 0 {
		return 0
	}
	return agg.ConfidenceSum / float64(agg.ConfidenceSeen)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for values in [0,1].
func Sparkline(values []float64) string {
	var b strings.Builder
	top := len(sparkChars) - 1
	for _, v := range values {
		v = math.Max(0, math.Min(1, v))
		b.WriteByte(sparkChars[int(math.Round(v*float64(top)))])
	}
	return b.String()
}

// ConfidenceSeries extracts validator confidences from attempts.
func ConfidenceSeries(attempts []model.StrokeAttempt) []float64 {
	out := make([]float64, len(attempts))
	for i, a := range attempts {
		out[i] = a.Confidence
	}
	return out
}

// RenderSummary prints overall totals for the progress rows.
func RenderSummary(w io.Writer, progress []model.CharacterProgress, attempts []model.StrokeAttempt) error {
	practiced := 0
	var completions, successes, hints int
	for _, p := range progress {
		if p.Attempts > 0 {
			practiced++
		}
		completions += p.Attempts
		successes += p.Successes
		hints += p.HintsUsed
	}
	if practiced == 0 && len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No practice recorded yet.")
		return err
	}
	valid := 0
	for _, a := range attempts {
		if a.Feedback == model.FeedbackCorrect {
			valid++
		}
	}

	lines := []string{
		"Summary",
		fmt.Sprintf("Characters practiced: %d of %d", practiced, len(progress)),
		fmt.Sprintf("Completions: %d (%d successful)", completions, successes),
		fmt.Sprintf("Completions with hints: %d", hints),
		fmt.Sprintf("Strokes drawn: %d (%s valid)", len(attempts), percent(valid, len(attempts))),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderProgressTable prints one row per character, least successful first.
func RenderProgressTable(w io.Writer, progress []model.CharacterProgress, now time.Time) error {
	if len(progress) == 0 {
		_, err := fmt.Fprintln(w, "No character progress found.")
		return err
	}
	rows := make([]model.CharacterProgress, len(progress))
	copy(rows, progress)
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := SuccessRate(rows[i]), SuccessRate(rows[j])
		if ri == rj {
			return rows[i].Character < rows[j].Character
		}
		return ri < rj
	})

	cols := []column{left("Char"), left("Type"), right("Practiced"), right("Succeeded"), right("Rate"), right("Hints"), left("Last Practiced")}
	tableRows := make([][]string, 0, len(rows))
	for _, p := range rows {
		last := "never"
		if p.LastPracticed != nil {
			last = humanize.RelTime(*p.LastPracticed, now, "ago", "from now")
		}
		tableRows = append(tableRows, []string{
			p.Character,
			p.Type,
			humanize.Comma(int64(p.Attempts)),
			humanize.Comma(int64(p.Successes)),
			percent(p.Successes, p.Attempts),
			humanize.Comma(int64(p.HintsUsed)),
			last,
		})
	}
	return writeTable(w, "Per-Character Progress", cols, tableRows)
}

// RenderWeakTable prints the weakest characters by first-try accuracy.
func RenderWeakTable(w io.Writer, aggs []model.CharAggregate, top int) error {
	weak := RankWeak(aggs, top)
	if len(weak) == 0 {
		_, err := fmt.Fprintln(w, "No stroke attempts found.")
		return err
	}
	cols := []column{left("Char"), right("First Try"), right("Valid"), right("Invalid"), right("Avg Confidence")}
	tableRows := make([][]string, 0, len(weak))
	for _, agg := range weak {
		tableRows = append(tableRows, []string{
			agg.Char,
			percent(agg.FirstTryValid, agg.FirstTryTotal),
			fmt.Sprintf("%d", agg.Valid),
			fmt.Sprintf("%d", agg.Invalid),
			fmt.Sprintf("%.2f", MeanConfidence(agg)),
		})
	}
	return writeTable(w, "Weak Characters (Windowed)", cols, tableRows)
}

// RenderConfidenceTrend prints a sparkline of recent stroke confidences.
func RenderConfidenceTrend(w io.Writer, attempts []model.StrokeAttempt, window int) error {
	if len(attempts) == 0 {
		return nil
	}
	values := MovingAverage(ConfidenceSeries(attempts), window)
	if _, err := fmt.Fprintf(w, "Confidence (last %d strokes, window %d)\n", len(attempts), max(window, 1)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "[%s]\n\n", Sparkline(values)); err != nil {
		return err
	}
	return nil
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}
