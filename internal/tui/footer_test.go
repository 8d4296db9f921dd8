package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/kakite/internal/model"
)

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{
		opts:          Options{Config: model.Config{FocusWeak: true}, WeakSet: map[string]struct{}{"日": {}, "月": {}}},
		completed:     3,
		firstTryValid: 4,
		firstTryTotal: 5,
	}
	out := m.renderFooter()
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"Completed 3", "First try 80.0%", "Weak 2"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}

	fresh := &Model{}
	if got := fresh.renderFooter(); strings.Contains(got, "First try") {
		t.Fatalf("expected no accuracy before any stroke: %s", got)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
