package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/stats"
)

func TestRenderFooterFormats(t *testing.T) {
	c := model.SessionCounters{Attempts: 4, Correct: 3, ReactionTotalMs: 3600}
	d := stats.Dashboard{Streak: 2, Mastered: 1, Notes: 7}
	out := footerText(c, d)
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"Session 3/4", "75%", "Avg 1200 ms", "Streak 2", "Mastered 1/7"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterWithoutCorrectAnswers(t *testing.T) {
	out := footerText(model.SessionCounters{Attempts: 2}, stats.Dashboard{Notes: 7})
	if strings.Contains(out, "Avg") {
		t.Fatalf("expected no reaction segment: %s", out)
	}
	if !containsAll(out, []string{"Session 0/2", "0%"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestFooterHiddenOnHome(t *testing.T) {
	m := &Model{panel: panelHome}
	if out := m.renderFooter(); out != "" {
		t.Fatalf("expected no footer on the home panel, got %q", out)
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
