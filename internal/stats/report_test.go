package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/kakite/internal/model"
	"github.com/verte-zerg/kakite/internal/store"
)

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kakite.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	for _, p := range []model.Progress{
		{Character: "日", Success: true},
		{Character: "月", Success: true, HintsUsed: true},
		{Character: "あ", Success: false},
	} {
		if err := st.UpdateProgress(ctx, p); err != nil {
			t.Fatalf("update progress: %v", err)
		}
	}
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	attempts := []model.StrokeAttempt{
		{Character: "あ", Feedback: model.FeedbackWrongDirection, Confidence: 0.2, FirstTry: true},
		{Character: "日", Feedback: model.FeedbackWrongStart, Confidence: 0.1, FirstTry: true},
		{Character: "日", Feedback: model.FeedbackCorrect, Confidence: 0.8},
		{Character: "月", Feedback: model.FeedbackCorrect, Confidence: 0.9, FirstTry: true},
		{Character: "月", StrokeIndex: 1, Feedback: model.FeedbackCorrect, Confidence: 0.7, FirstTry: true},
	}
	for i, a := range attempts {
		a.AttemptedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := st.RecordAttempt(ctx, a); err != nil {
			t.Fatalf("record attempt: %v", err)
		}
	}
	return st
}

func TestBuildReport(t *testing.T) {
	st := seedStore(t)
	ctx := context.Background()

	report, err := BuildReport(ctx, st, model.StatsConfig{Last: 4, Window: 4})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Progress) != 3 {
		t.Fatalf("expected 3 progress rows, got %d", len(report.Progress))
	}
	if len(report.Attempts) != 4 || report.Attempts[0].Character != "日" {
		t.Fatalf("expected the 4 newest attempts in order, got %+v", report.Attempts)
	}
	for _, agg := range report.Weak {
		if agg.Char == "あ" {
			t.Fatalf("expected あ outside the weak window, got %+v", report.Weak)
		}
	}

	filtered, err := BuildReport(ctx, st, model.StatsConfig{Chars: "日"})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(filtered.Progress) != 1 || len(filtered.Attempts) != 2 {
		t.Fatalf("expected only 日 data, got %d progress and %d attempts", len(filtered.Progress), len(filtered.Attempts))
	}
	if len(filtered.Weak) != 1 || filtered.Weak[0].Char != "日" {
		t.Fatalf("expected weak aggregates for 日 only, got %+v", filtered.Weak)
	}
}

func TestReportRender(t *testing.T) {
	st := seedStore(t)
	report, err := BuildReport(context.Background(), st, model.StatsConfig{})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	var buf bytes.Buffer
	err = report.Render(&buf, RenderOptions{
		Now:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Window:    2,
		PlotWidth: 20,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Summary", "Most practiced: ", "Per-Character Progress", "Weak Characters", "Confidence (last 5 strokes", "Stroke Quality"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestReportRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := (Report{}).Render(&buf, RenderOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No practice recorded yet." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestFirstTrySeries(t *testing.T) {
	got := FirstTrySeries([]model.StrokeAttempt{
		{Feedback: model.FeedbackWrongStart, FirstTry: true},
		{Feedback: model.FeedbackCorrect},
		{Feedback: model.FeedbackCorrect, FirstTry: true},
	})
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("unexpected series %v", got)
	}
}
