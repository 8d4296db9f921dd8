package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/kakite/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "kakite.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func fixedClock(s *Store, start time.Time) *time.Time {
	now := start
	s.now = func() time.Time { return now }
	return &now
}

func TestUpdateProgressAccumulates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := fixedClock(s, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	if err := s.UpdateProgress(ctx, model.Progress{Character: "日", Success: true}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	*now = now.Add(time.Hour)
	if err := s.UpdateProgress(ctx, model.Progress{Character: "日", Success: true, HintsUsed: true}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := s.UpdateProgress(ctx, model.Progress{Character: "日", Success: false}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	p, ok, err := s.GetProgress(ctx, "日")
	if err != nil || !ok {
		t.Fatalf("GetProgress: ok=%v err=%v", ok, err)
	}
	if p.Attempts != 3 || p.Successes != 2 || p.HintsUsed != 1 || p.Type != "kanji" {
		t.Fatalf("unexpected progress %+v", p)
	}
	if p.LastPracticed == nil || !p.LastPracticed.Equal(*now) {
		t.Fatalf("expected last practiced %v, got %v", *now, p.LastPracticed)
	}

	if _, ok, err := s.GetProgress(ctx, "月"); err != nil || ok {
		t.Fatalf("expected no progress for unseen character, ok=%v err=%v", ok, err)
	}
	if err := s.UpdateProgress(ctx, model.Progress{}); err == nil {
		t.Fatalf("expected error for empty character")
	}
}

func TestListProgressFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := fixedClock(s, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	for _, c := range []string{"あ", "日", "月"} {
		if err := s.UpdateProgress(ctx, model.Progress{Character: c, Success: true}); err != nil {
			t.Fatalf("UpdateProgress: %v", err)
		}
		*now = now.Add(24 * time.Hour)
	}

	all, err := s.ListProgress(ctx, model.StatsConfig{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d (%v)", len(all), err)
	}
	kanji, err := s.ListProgress(ctx, model.StatsConfig{Type: "kanji"})
	if err != nil || len(kanji) != 2 {
		t.Fatalf("expected 2 kanji rows, got %d (%v)", len(kanji), err)
	}
	since := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	recent, err := s.ListProgress(ctx, model.StatsConfig{Since: &since})
	if err != nil || len(recent) != 2 {
		t.Fatalf("expected 2 recent rows, got %d (%v)", len(recent), err)
	}
	only, err := s.ListProgress(ctx, model.StatsConfig{Chars: "月"})
	if err != nil || len(only) != 1 || only[0].Character != "月" {
		t.Fatalf("expected only 月, got %+v (%v)", only, err)
	}
}

func TestAttemptsAndWeakChars(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	attempts := []model.StrokeAttempt{
		{Character: "日", StrokeIndex: 0, Feedback: model.FeedbackWrongStart, Confidence: 0.1, FirstTry: true},
		{Character: "日", StrokeIndex: 0, Feedback: model.FeedbackCorrect, Confidence: 0.8},
		{Character: "月", StrokeIndex: 0, Feedback: model.FeedbackCorrect, Confidence: 0.9, FirstTry: true},
		{Character: "月", StrokeIndex: 1, Feedback: model.FeedbackCorrect, Confidence: 0.7, FirstTry: true},
	}
	for i, a := range attempts {
		a.AttemptedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.RecordAttempt(ctx, a); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	listed, err := s.ListAttempts(ctx, model.StatsConfig{})
	if err != nil || len(listed) != 4 {
		t.Fatalf("expected 4 attempts, got %d (%v)", len(listed), err)
	}
	if listed[0].Feedback != model.FeedbackWrongStart || !listed[0].FirstTry {
		t.Fatalf("unexpected first attempt %+v", listed[0])
	}
	last, err := s.ListAttempts(ctx, model.StatsConfig{Last: 2})
	if err != nil || len(last) != 2 || last[0].Character != "月" || last[1].StrokeIndex != 1 {
		t.Fatalf("unexpected last attempts %+v (%v)", last, err)
	}

	aggs, err := s.GetWeakChars(ctx, 10, "")
	if err != nil {
		t.Fatalf("GetWeakChars: %v", err)
	}
	byChar := map[string]model.CharAggregate{}
	for _, a := range aggs {
		byChar[a.Char] = a
	}
	hi := byChar["日"]
	if hi.Valid != 1 || hi.Invalid != 1 || hi.FirstTryTotal != 1 || hi.FirstTryValid != 0 {
		t.Fatalf("unexpected aggregate for 日: %+v", hi)
	}
	tsuki := byChar["月"]
	if tsuki.FirstTryValid != 2 || tsuki.ConfidenceSeen != 2 {
		t.Fatalf("unexpected aggregate for 月: %+v", tsuki)
	}

	window, err := s.GetWeakChars(ctx, 2, "")
	if err != nil || len(window) != 1 || window[0].Char != "月" {
		t.Fatalf("expected window to cover only 月, got %+v (%v)", window, err)
	}
	if none, err := s.GetWeakChars(ctx, 0, ""); err != nil || none != nil {
		t.Fatalf("expected nil for zero window, got %+v (%v)", none, err)
	}
}

func TestStrokeCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.CachedStrokes(ctx, "09b31"); err != nil || ok {
		t.Fatalf("expected cache miss, ok=%v err=%v", ok, err)
	}
	data := model.CharacterStrokes{
		Character:   "鬱",
		StrokeCount: 1,
		Strokes:     []model.ReferenceStroke{{Path: "M10,10 L90,90", StartX: 0.092, StartY: 0.092}},
	}
	if err := s.CacheStrokes(ctx, "09b31", data); err != nil {
		t.Fatalf("CacheStrokes: %v", err)
	}
	data.StrokeCount = 1
	if err := s.CacheStrokes(ctx, "09b31", data); err != nil {
		t.Fatalf("CacheStrokes overwrite: %v", err)
	}
	got, ok, err := s.CachedStrokes(ctx, "09b31")
	if err != nil || !ok {
		t.Fatalf("expected cache hit, ok=%v err=%v", ok, err)
	}
	if got.Character != "鬱" || len(got.Strokes) != 1 || got.Strokes[0].Path != "M10,10 L90,90" {
		t.Fatalf("unexpected cached data %+v", got)
	}
	if n, err := s.CachedStrokeCount(ctx); err != nil || n != 1 {
		t.Fatalf("expected 1 cached entry, got %d (%v)", n, err)
	}
	if err := s.ClearStrokeCache(ctx); err != nil {
		t.Fatalf("ClearStrokeCache: %v", err)
	}
	if n, _ := s.CachedStrokeCount(ctx); n != 0 {
		t.Fatalf("expected empty cache, got %d", n)
	}
}

func TestPracticeWords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := fixedClock(s, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	w, created, err := s.AddWord(ctx, "日本", "にほん", "Japan", "manual")
	if err != nil || !created {
		t.Fatalf("AddWord: created=%v err=%v", created, err)
	}
	if w.ID == "" || len(w.Characters) != 2 {
		t.Fatalf("unexpected word %+v", w)
	}
	dup, created, err := s.AddWord(ctx, " 日本 ", "", "", "")
	if err != nil || created || dup.ID != w.ID {
		t.Fatalf("expected duplicate to return existing word, got %+v created=%v err=%v", dup, created, err)
	}
	*now = now.Add(time.Minute)
	if _, _, err := s.AddWord(ctx, "日曜日", "", "", ""); err != nil {
		t.Fatalf("AddWord: %v", err)
	}
	if _, _, err := s.AddWord(ctx, "abc", "", "", ""); err == nil {
		t.Fatalf("expected error for word without practiceable characters")
	}

	p, ok, err := s.GetProgress(ctx, "本")
	if err != nil || !ok || p.Attempts != 0 {
		t.Fatalf("expected default progress row, got %+v ok=%v err=%v", p, ok, err)
	}

	words, err := s.ListWords(ctx)
	if err != nil || len(words) != 2 || words[0].Word != "日曜日" {
		t.Fatalf("unexpected words %+v (%v)", words, err)
	}
	chars, err := s.WordCharacters(ctx)
	if err != nil {
		t.Fatalf("WordCharacters: %v", err)
	}
	if len(chars) != 3 || chars[0] != "日" || chars[1] != "本" || chars[2] != "曜" {
		t.Fatalf("unexpected characters %v", chars)
	}

	if ok, err := s.UpdateWord(ctx, w.ID, "にっぽん", "Japan"); err != nil || !ok {
		t.Fatalf("UpdateWord: ok=%v err=%v", ok, err)
	}
	got, _, _ := s.GetWord(ctx, "日本")
	if got.Reading != "にっぽん" {
		t.Fatalf("expected updated reading, got %q", got.Reading)
	}

	if has, err := s.HasWord(ctx, "日本"); err != nil || !has {
		t.Fatalf("expected HasWord true, got %v (%v)", has, err)
	}
	if ok, err := s.RemoveWord(ctx, w.ID); err != nil || !ok {
		t.Fatalf("RemoveWord: ok=%v err=%v", ok, err)
	}
	if ok, err := s.RemoveWord(ctx, w.ID); err != nil || ok {
		t.Fatalf("expected second remove to report nothing removed")
	}
	if has, _ := s.HasWord(ctx, "日本"); has {
		t.Fatalf("expected word to be gone")
	}
}
