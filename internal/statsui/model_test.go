package statsui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/profile"
)

type fakeSource struct {
	profiles map[string][]byte
	answers  []model.Answer
	days     []model.DailySummary
}

func (f *fakeSource) LoadProfile(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := f.profiles[key]
	return data, ok, nil
}

func (f *fakeSource) ListAnswers(_ context.Context, cfg model.StatsConfig) ([]model.Answer, error) {
	var out []model.Answer
	for _, a := range f.answers {
		if a.ProfileKey == cfg.ProfileKey {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) ListDailySummaries(context.Context, model.StatsConfig) ([]model.DailySummary, error) {
	return f.days, nil
}

func newSource(t *testing.T) *fakeSource {
	t.Helper()
	v := curriculum.Staged()
	p := profile.Default(v)
	p.Notes[0].Mastery = 95
	p.Notes[0].Attempts = 10
	p.Notes[0].Correct = 9
	p.TotalAttempts = 10
	p.TotalCorrect = 9
	data, err := profile.Encode(p)
	require.NoError(t, err)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	return &fakeSource{
		profiles: map[string][]byte{v.StorageKey: data},
		answers: []model.Answer{
			{ProfileKey: v.StorageKey, StageID: 1, Correct: true, ReactionMs: 900},
		},
		days: []model.DailySummary{
			{Day: day, Attempts: 4, Correct: 3, ReactionMs: 2700, Sessions: 1},
			{Day: day.Add(24 * time.Hour), Attempts: 6, Correct: 6, ReactionMs: 4800, Sessions: 2},
		},
	}
}

func TestViewRendersTabs(t *testing.T) {
	m := NewModel(newSource(t), curriculum.Staged(), model.StatsConfig{CurveWindow: 2})
	_, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	assert.Contains(t, view, "Overview")
	assert.Contains(t, view, "Mastered")
	assert.Contains(t, view, "1/7")
	lines := strings.Split(view, "\n")
	assert.Len(t, lines, 30)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabNotes, m.activeTab)
	assert.Contains(t, m.View(), "Avg Reaction")

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Contains(t, m.View(), "Stage 1")

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Contains(t, m.View(), "2025-06-02")

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabOverview, m.activeTab)
}

func TestOverviewListsWeakestNotes(t *testing.T) {
	m := NewModel(newSource(t), curriculum.Staged(), model.StatsConfig{CurveWindow: 1})
	out := RenderOverview(m.report, 1, 100, time.Now())
	assert.Contains(t, out, "Weakest:")
	assert.Contains(t, out, "D (40)")
	assert.NotContains(t, out, "C (95)")
}

func TestApplyFilter(t *testing.T) {
	m := NewModel(newSource(t), curriculum.Staged(), model.StatsConfig{CurveWindow: 5})
	m.filterInputs[0].SetValue("simple")
	m.filterInputs[1].SetValue("2025-06-01")
	m.filterInputs[2].SetValue("7")
	m.filterInputs[3].SetValue("3")
	require.NoError(t, m.applyFilter())
	assert.Equal(t, curriculum.SimpleName, m.variant.Name)
	assert.Equal(t, 7, m.cfg.Last)
	assert.Equal(t, 3, m.cfg.CurveWindow)
	require.NotNil(t, m.cfg.Since)

	m.filterInputs[0].SetValue("jazz")
	assert.ErrorIs(t, m.applyFilter(), curriculum.ErrUnknownVariant)

	m.filterInputs[0].SetValue("")
	m.filterInputs[3].SetValue("0")
	assert.Error(t, m.applyFilter())
}

func TestCurveWindowSteps(t *testing.T) {
	assert.Equal(t, 5, nextCurveWindow(1))
	assert.Equal(t, 10, nextCurveWindow(5))
	assert.Equal(t, 10, nextCurveWindow(7))
	assert.Equal(t, 1, prevCurveWindow(5))
	assert.Equal(t, 5, prevCurveWindow(7))
	assert.Equal(t, 10, prevCurveWindow(15))
}

func TestFitLines(t *testing.T) {
	out := fitLines("ab\ncd\nef", 4, 2)
	assert.Equal(t, "ab  \ncd  ", out)
	assert.Equal(t, "abc...", truncateLine("abcdefghij", 6))
	assert.Equal(t, "abc", truncateLine("abc", 6))
}
