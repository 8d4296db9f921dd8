package stats

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/kakite/internal/chars"
	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/store"
)

// DefaultWeakTop is the number of weak characters listed in a report.
const DefaultWeakTop = 10

const mostPracticedCount = 5

// Report contains precomputed data for stats rendering.
type Report struct {
	Progress []model.CharacterProgress
	Attempts []model.StrokeAttempt
	Weak     []model.CharAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	progress, err := st.ListProgress(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list progress: %w", err)
	}
	attempts, err := st.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list attempts: %w", err)
	}
	window := cfg.Window
	if window <= 0 {
		window = math.MaxInt32
	}
	weak, err := st.GetWeakChars(ctx, window, cfg.Type)
	if err != nil {
		return Report{}, fmt.Errorf("failed to aggregate weak characters: %w", err)
	}
	if cfg.Chars != "" {
		weak = filterAggregates(weak, chars.Practiceable(cfg.Chars))
	}
	return Report{Progress: progress, Attempts: attempts, Weak: weak}, nil
}

// RenderOptions tunes report output.
type RenderOptions struct {
	Now       time.Time
	Window    int
	WeakTop   int
	PlotWidth int
	UseColor  bool
}

// Render writes every report section in order.
func (r Report) Render(w io.Writer, opts RenderOptions) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.WeakTop <= 0 {
		opts.WeakTop = DefaultWeakTop
	}
	if err := RenderSummary(w, r.Progress, r.Attempts); err != nil {
		return err
	}
	if len(r.Progress) == 0 && len(r.Attempts) == 0 {
		return nil
	}
	if top := MostPracticed(r.Progress, mostPracticedCount); len(top) > 0 {
		if _, err := fmt.Fprintf(w, "Most practiced: %s\n\n", strings.Join(top, " ")); err != nil {
			return err
		}
	}
	if err := RenderProgressTable(w, r.Progress, opts.Now); err != nil {
		return err
	}
	if err := RenderWeakTable(w, r.Weak, opts.WeakTop); err != nil {
		return err
	}
	if err := RenderConfidenceTrend(w, r.Attempts, opts.Window); err != nil {
		return err
	}
	if len(r.Attempts) < 2 {
		return nil
	}
	series := []Series{
		{Name: "confidence", Values: MovingAverage(ConfidenceSeries(r.Attempts), opts.Window)},
		{Name: "first-try valid", Values: MovingAverage(FirstTrySeries(r.Attempts), opts.Window)},
	}
	return PlotUnitSeries(w, "Stroke Quality", series, opts.PlotWidth, 0, opts.UseColor)
}

// FirstTrySeries yields 1 for a valid first try and 0 for a failed one.
// Retries are skipped.
func FirstTrySeries(attempts []model.StrokeAttempt) []float64 {
	var out []float64
	for _, a := range attempts {
		if !a.FirstTry {
			continue
		}
		if a.Feedback == model.FeedbackCorrect {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

func filterAggregates(aggs []model.CharAggregate, only []string) []model.CharAggregate {
	keep := make(map[string]struct{}, len(only))
	for _, c := range only {
		keep[c] = struct{}{}
	}
	out := aggs[:0:0]
	for _, agg := range aggs {
		if _, ok := keep[agg.Char]; ok {
			out = append(out, agg)
		}
	}
	return out
}
