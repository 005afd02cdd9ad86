package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/verte-zerg/staffdrill/internal/catalog"
	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/generator"
	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/profile"
	"github.com/verte-zerg/staffdrill/internal/store"
	"github.com/verte-zerg/staffdrill/internal/trainer"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type recordingPlayer struct {
	freqs []float64
}

func (p *recordingPlayer) Play(freq float64, _ time.Duration) {
	p.freqs = append(p.freqs, freq)
}

func newTestModel(t *testing.T, v curriculum.Variant, prep func(p *model.Profile)) (*Model, *recordingPlayer) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "staffdrill.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	if prep != nil {
		p := profile.Default(v)
		prep(&p)
		data, err := profile.Encode(p)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if err := st.SaveProfile(ctx, v.StorageKey, data); err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	}
	s, err := trainer.Open(ctx, st, v, trainer.WithGenerator(generator.NewWithSeed(3)))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	player := &recordingPlayer{}
	m := NewModel(s, st, player, zap.NewNop(), model.StatsConfig{CurveWindow: 3})
	m.now = func() time.Time { return epoch }
	return m, player
}

func press(m *Model, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func atStage(idx int) func(p *model.Profile) {
	return func(p *model.Profile) {
		p.CurrentStage = idx
	}
}

func TestPrimingFlowReturnsHome(t *testing.T) {
	m, _ := newTestModel(t, curriculum.Staged(), nil)
	press(m, "enter")
	if m.panel != panelTraining || m.exposure == nil {
		t.Fatalf("expected a priming exposure after start")
	}
	for i := 0; i < 8; i++ {
		label := catalog.PrimingPosition(i).Label
		if m.exposure.Position.Label != label {
			t.Fatalf("exposure %d: expected %s, got %s", i, label, m.exposure.Position.Label)
		}
		if !strings.Contains(m.View(), label+" position") {
			t.Fatalf("exposure %d: overlay missing", i)
		}
		press(m, "enter")
	}
	cmd := press(m, "enter")
	if cmd == nil || !m.waiting {
		t.Fatalf("expected a delayed return home")
	}
	if !strings.Contains(m.feedback, "Stage complete") {
		t.Fatalf("unexpected feedback %q", m.feedback)
	}
	m.Update(homeMsg{seq: m.seq})
	if m.panel != panelHome {
		t.Fatalf("expected home panel")
	}
	if m.session.Stage().Mode != model.ModeSingle {
		t.Fatalf("expected the single-note stage, got %v", m.session.Stage().Mode)
	}
	view := m.View()
	if !containsAll(view, []string{"Complete", "Active", "Stage 1 - Single Note Imprinting"}) {
		t.Fatalf("home view missing stage list:\n%s", view)
	}
}

func TestAnswerShowsFeedbackAndWaits(t *testing.T) {
	m, _ := newTestModel(t, curriculum.Staged(), atStage(1))
	press(m, "enter")
	if m.question == nil {
		t.Fatalf("expected a question")
	}
	q := *m.question
	if q.Note.Label != "C" {
		t.Fatalf("expected the first single-note drill on C, got %s", q.Note.Label)
	}
	if cmd := press(m, "c"); cmd == nil {
		t.Fatalf("expected the next-question delay")
	}
	if m.feedback != "Locked in." || !m.waiting {
		t.Fatalf("unexpected feedback %q waiting=%v", m.feedback, m.waiting)
	}
	press(m, "c")
	m.Update(deadlineMsg{id: q.ID})
	if got := m.session.Counters().Attempts; got != 1 {
		t.Fatalf("expected one attempt, got %d", got)
	}

	m.Update(nextMsg{seq: m.seq})
	if m.question == nil || m.question.ID == q.ID || m.waiting {
		t.Fatalf("expected a fresh question")
	}
	wrong := -1
	for i, c := range m.question.Choices {
		if c != m.question.Note.Label {
			wrong = i
			break
		}
	}
	if wrong < 0 {
		t.Fatalf("expected a distractor among %v", m.question.Choices)
	}
	press(m, fmt.Sprint(wrong+1))
	if m.feedback != "Correct: C" {
		t.Fatalf("unexpected feedback %q", m.feedback)
	}
	if m.session.Profile().Streak != 0 {
		t.Fatalf("expected the streak to reset")
	}
}

func TestDeadlineExpiresQuestionOnce(t *testing.T) {
	m, _ := newTestModel(t, curriculum.Simple(time.Second), nil)
	cmd := press(m, "enter")
	if m.question == nil || cmd == nil {
		t.Fatalf("expected a timed question with a countdown tick")
	}
	q := *m.question
	m.Update(deadlineMsg{id: q.ID})
	if m.feedback != "Time's up. "+q.Note.Label {
		t.Fatalf("unexpected feedback %q", m.feedback)
	}
	m.Update(deadlineMsg{id: q.ID})
	if got := m.session.Counters().Attempts; got != 1 {
		t.Fatalf("expected one attempt, got %d", got)
	}
	if _, cmd := m.Update(tickMsg{id: q.ID}); cmd != nil {
		t.Fatalf("expected the countdown to stop after resolution")
	}
}

func TestStaleMessagesAfterLeaving(t *testing.T) {
	m, _ := newTestModel(t, curriculum.Simple(0), nil)
	press(m, "enter")
	q := *m.question
	press(m, strings.ToLower(q.Note.Label))
	seq := m.seq
	press(m, "esc")
	m.Update(nextMsg{seq: seq})
	if m.panel != panelHome || m.question != nil {
		t.Fatalf("expected to stay home")
	}
	if _, ok := m.session.Question(); ok {
		t.Fatalf("expected no question on screen")
	}
}

func TestAudioStagePlaysTone(t *testing.T) {
	m, player := newTestModel(t, curriculum.Staged(), atStage(4))
	press(m, "enter")
	if m.question == nil {
		t.Fatalf("expected a question")
	}
	if len(player.freqs) != 1 || player.freqs[0] != m.question.Note.Freq {
		t.Fatalf("expected one tone at %.2f, got %v", m.question.Note.Freq, player.freqs)
	}
	if !strings.Contains(m.View(), "Listen") {
		t.Fatalf("expected the listen overlay")
	}
	m.now = func() time.Time { return epoch.Add(time.Second) }
	if strings.Contains(m.View(), "Listen") {
		t.Fatalf("expected the listen overlay to clear")
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	m, _ := newTestModel(t, curriculum.Staged(), func(p *model.Profile) {
		p.CurrentStage = 3
		p.Streak = 5
	})
	press(m, "r")
	if !strings.Contains(m.View(), "Reset all progress? y/n") {
		t.Fatalf("expected the reset prompt")
	}
	press(m, "n")
	if m.session.Stage().ID != 3 {
		t.Fatalf("expected progress to survive a cancelled reset")
	}
	press(m, "r")
	press(m, "y")
	p := m.session.Profile()
	if p.CurrentStage != 0 || p.Streak != 0 {
		t.Fatalf("expected defaults after reset, got stage %d streak %d", p.CurrentStage, p.Streak)
	}
}

func TestStatsModal(t *testing.T) {
	m, _ := newTestModel(t, curriculum.Simple(0), nil)
	press(m, "enter")
	press(m, strings.ToLower(m.question.Note.Label))
	press(m, "esc")
	press(m, "s")
	if !m.showStats {
		t.Fatalf("expected the stats modal")
	}
	view := m.View()
	if !containsAll(view, []string{"Mastered", "Notes", "Avg Reaction", "esc close"}) {
		t.Fatalf("stats modal missing sections:\n%s", view)
	}
	press(m, "esc")
	if m.showStats {
		t.Fatalf("expected the modal to close")
	}
}

func TestChoiceForKey(t *testing.T) {
	m := &Model{question: &trainer.Question{Choices: []string{"C", "E", "G", "B"}}}
	cases := []struct {
		key  string
		want string
		ok   bool
	}{
		{"2", "E", true},
		{"g", "G", true},
		{"B", "B", true},
		{"5", "", false},
		{"d", "", false},
		{"enter", "", false},
	}
	for _, tc := range cases {
		got, ok := m.choiceForKey(tc.key)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("key %q: expected %q/%v, got %q/%v", tc.key, tc.want, tc.ok, got, ok)
		}
	}
}

func TestMasteryBand(t *testing.T) {
	cases := map[float64]string{
		0:    "danger",
		39.9: "danger",
		40:   "warning",
		69:   "warning",
		70:   "success",
		100:  "success",
	}
	for mastery, want := range cases {
		if got := masteryBand(mastery); got != want {
			t.Fatalf("mastery %.1f: expected %s, got %s", mastery, want, got)
		}
	}
}
