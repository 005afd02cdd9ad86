package stats

import (
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/profile"
)

func TestSummarize(t *testing.T) {
	p := profile.Default(curriculum.Staged())
	p.Notes[0].Mastery = 85
	p.Notes[1].Mastery = 84.9
	p.Notes[2].Mastery = 100
	p.Notes[0].Correct = 2
	p.Notes[0].ReactionTotalMs = 1000
	p.Notes[1].Correct = 2
	p.Notes[1].ReactionTotalMs = 3000
	p.TotalAttempts = 5
	p.TotalCorrect = 4
	p.Streak = 3

	d := Summarize(p)
	if d.Mastered != 2 {
		t.Fatalf("expected 2 mastered, got %d", d.Mastered)
	}
	if d.Accuracy != 0.8 {
		t.Fatalf("unexpected accuracy %v", d.Accuracy)
	}
	if d.AvgReactionMs != 1000 {
		t.Fatalf("unexpected avg reaction %v", d.AvgReactionMs)
	}
	if d.Streak != 3 || d.Notes != 7 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	d := Summarize(profile.Default(curriculum.Staged()))
	if d.Accuracy != 0 || d.AvgReactionMs != 0 || d.Mastered != 0 {
		t.Fatalf("unexpected dashboard %+v", d)
	}
}

func TestNoteRows(t *testing.T) {
	p := profile.Default(curriculum.Staged())
	p.Notes[4].Attempts = 4
	p.Notes[4].Correct = 3
	p.Notes[4].ReactionTotalMs = 2400
	rows := NoteRows(p)
	if len(rows) != 7 || rows[4].Label != "G" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[4].Accuracy != 0.75 || rows[4].AvgReactionMs != 800 {
		t.Fatalf("unexpected row %+v", rows[4])
	}
}

func TestWeakestNotes(t *testing.T) {
	rows := []NoteRow{
		{Label: "C", Mastery: 60, Accuracy: 0.9},
		{Label: "D", Mastery: 20, Accuracy: 0.5},
		{Label: "E", Mastery: 60, Accuracy: 0.4},
	}
	weak := WeakestNotes(rows, 2)
	if len(weak) != 2 || weak[0].Label != "D" || weak[1].Label != "E" {
		t.Fatalf("unexpected order %+v", weak)
	}
	if rows[0].Label != "C" {
		t.Fatalf("input reordered")
	}
	if WeakestNotes(rows, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4}, 2)
	want := []float64{1, 1.5, 2.5, 3.5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 50, 100}); got != " +@" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{5, 5}); got != "++" {
		t.Fatalf("flat series should render mid glyphs, got %q", got)
	}
	if Sparkline(nil) != "" {
		t.Fatalf("expected empty sparkline")
	}
}

func TestLastSessionText(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	if got := LastSessionText(nil, now); got != "never" {
		t.Fatalf("got %q", got)
	}
	last := now.Add(-3 * 24 * time.Hour)
	if got := LastSessionText(&last, now); got != "3 days ago" {
		t.Fatalf("got %q", got)
	}
}

func TestPracticeTime(t *testing.T) {
	answers := []model.Answer{{ReactionMs: 61500}, {ReactionMs: 60000}}
	if got := PracticeTime(answers); got != "2 minutes 1 second" {
		t.Fatalf("got %q", got)
	}
	if got := PracticeTime(nil); got != "none" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatReaction(t *testing.T) {
	if FormatReaction(math.Inf(1)) != "-" || FormatReaction(0) != "-" {
		t.Fatalf("expected placeholder")
	}
	if got := FormatReaction(1234.4); got != "1234 ms" {
		t.Fatalf("got %q", got)
	}
}
