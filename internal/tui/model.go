// Package tui provides the Bubble Tea trainer interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/staffdrill/internal/audio"
	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/stats"
	"github.com/verte-zerg/staffdrill/internal/statsui"
	"github.com/verte-zerg/staffdrill/internal/trainer"
)

type panel int

const (
	panelHome panel = iota
	panelTraining
)

type feedbackKind int

const (
	feedbackNone feedbackKind = iota
	feedbackGood
	feedbackBad
)

const (
	nextDelay    = 650 * time.Millisecond
	homeDelay    = 900 * time.Millisecond
	tickInterval = 100 * time.Millisecond
	listenFor    = 600 * time.Millisecond
	staffWidth   = 29
	timerWidth   = 40
	statsWidth   = 80
)

// deadlineMsg is posted by the session deadline for question id.
type deadlineMsg struct{ id int }

// tickMsg redraws the countdown of question id.
type tickMsg struct{ id int }

type nextMsg struct{ seq int }

type homeMsg struct{ seq int }

// Model implements the Bubble Tea trainer UI.
type Model struct {
	session *trainer.Session
	source  stats.Source
	player  audio.Player
	log     *zap.Logger
	cfg     model.StatsConfig
	send    func(tea.Msg)
	now     func() time.Time

	width  int
	height int

	panel        panel
	seq          int
	showStats    bool
	statsView    string
	confirmReset bool

	question     *trainer.Question
	exposure     *trainer.Exposure
	mastery      float64
	picked       string
	reveal       string
	listenUntil  time.Time
	waiting      bool
	feedback     string
	feedbackKind feedbackKind
	errMsg       string

	timer progress.Model
}

var (
	titleStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	textStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	accentStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	dangerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	warningStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	successStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	choiceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	correctChoiceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	wrongChoiceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Strikethrough(true)
	modalStyle         = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
)

// NewModel constructs a trainer TUI model around an open session. source
// feeds the stats modal and may be nil, in which case the modal shows the
// session profile only.
func NewModel(session *trainer.Session, source stats.Source, player audio.Player, log *zap.Logger, cfg model.StatsConfig) *Model {
	if player == nil {
		player = audio.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Model{
		session: session,
		source:  source,
		player:  player,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
		timer: progress.New(
			progress.WithGradient("#FF4D4F", "#52C41A"),
			progress.WithWidth(timerWidth),
			progress.WithoutPercentage(),
		),
	}
}

// SetSender wires the program's Send so session deadlines can reach Update.
// Without a sender questions are never expired.
func (m *Model) SetSender(send func(tea.Msg)) {
	m.send = send
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.showStats {
			m.loadStats()
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case deadlineMsg:
		if m.panel != panelTraining {
			return m, nil
		}
		res, err := m.session.Expire(context.Background(), msg.id)
		return m, m.afterResolve(res, err, "")
	case tickMsg:
		if m.question != nil && m.question.ID == msg.id && !m.waiting {
			return m, tick(msg.id)
		}
		return m, nil
	case nextMsg:
		if msg.seq != m.seq || m.panel != panelTraining {
			return m, nil
		}
		return m, m.ask()
	case homeMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.goHome()
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch {
	case m.showStats:
		content = modalStyle.Render(m.statsView + "\n\n" + mutedStyle.Render("esc close"))
	case m.panel == panelTraining:
		content = m.renderTraining()
	default:
		content = m.renderHome()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	key := msg.String()
	if m.showStats {
		switch key {
		case "esc", "s", "q":
			m.showStats = false
		}
		return m, nil
	}
	if m.confirmReset {
		m.confirmReset = false
		if key == "y" || key == "Y" {
			m.reset()
		}
		return m, nil
	}
	if m.panel == panelHome {
		switch key {
		case "enter", " ":
			return m, m.startTraining()
		case "s":
			m.loadStats()
			m.showStats = true
		case "r":
			m.confirmReset = true
		case "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	switch key {
	case "esc":
		m.goHome()
		return m, nil
	case "enter", " ":
		if m.exposure != nil && !m.waiting {
			return m, m.continuePriming()
		}
		return m, nil
	}
	if label, ok := m.choiceForKey(key); ok {
		return m, m.answer(label)
	}
	return m, nil
}

// choiceForKey maps a number key or a note letter onto one of the choices
// on screen.
func (m *Model) choiceForKey(key string) (string, bool) {
	if m.question == nil || len(key) != 1 {
		return "", false
	}
	choices := m.question.Choices
	if key[0] >= '1' && key[0] <= '9' {
		i := int(key[0] - '1')
		if i < len(choices) {
			return choices[i], true
		}
		return "", false
	}
	label := strings.ToUpper(key)
	for _, c := range choices {
		if c == label {
			return c, true
		}
	}
	return "", false
}

func (m *Model) startTraining() tea.Cmd {
	m.session.Start()
	m.panel = panelTraining
	m.seq++
	m.errMsg = ""
	return m.ask()
}

func (m *Model) goHome() {
	m.session.Pause()
	m.panel = panelHome
	m.seq++
	m.question = nil
	m.exposure = nil
	m.clearFeedback()
}

func (m *Model) clearFeedback() {
	m.waiting = false
	m.picked = ""
	m.reveal = ""
	m.feedback = ""
	m.feedbackKind = feedbackNone
	m.listenUntil = time.Time{}
}

// ask shows the next priming exposure or question for the active stage.
func (m *Model) ask() tea.Cmd {
	m.clearFeedback()
	stage := m.session.Stage()
	if stage.Mode == model.ModePriming {
		exp, err := m.session.Expose()
		if err != nil {
			m.showError("failed to start priming", err)
			return nil
		}
		m.question = nil
		m.exposure = &exp
		m.feedback = "Observe the placement. No answers yet."
		return nil
	}

	m.exposure = nil
	q, err := m.session.Next(m.onExpire())
	if err != nil {
		m.showError("failed to draw a question", err)
		return nil
	}
	m.question = &q
	m.mastery = q.Mastery
	if stage.Mode == model.ModeAudio {
		m.player.Play(q.Note.Freq, audio.ToneDuration)
		m.listenUntil = m.now().Add(listenFor)
	}
	if q.TimeLimit > 0 || !m.listenUntil.IsZero() {
		return tick(q.ID)
	}
	return nil
}

func (m *Model) onExpire() func(id int) {
	if m.send == nil {
		return nil
	}
	send := m.send
	return func(id int) {
		send(deadlineMsg{id: id})
	}
}

func (m *Model) answer(label string) tea.Cmd {
	if m.question == nil || m.waiting {
		return nil
	}
	res, err := m.session.Answer(context.Background(), m.question.ID, label)
	return m.afterResolve(res, err, label)
}

func (m *Model) afterResolve(res trainer.Result, err error, label string) tea.Cmd {
	if errors.Is(err, trainer.ErrStale) {
		return nil
	}
	if err != nil {
		m.showError("failed to save answer", err)
	}
	m.waiting = true
	m.picked = label
	m.reveal = res.Note.Label
	m.mastery = res.Mastery
	switch {
	case res.Correct:
		m.feedback = "Locked in."
		m.feedbackKind = feedbackGood
	case res.TimedOut:
		m.feedback = "Time's up. " + res.Note.Label
		m.feedbackKind = feedbackBad
	default:
		m.feedback = "Correct: " + res.Note.Label
		m.feedbackKind = feedbackBad
	}
	if res.StageComplete {
		m.feedback = "Stage complete. Progress unlocked."
		m.feedbackKind = feedbackGood
		return delay(homeDelay, homeMsg{seq: m.seq})
	}
	return delay(nextDelay, nextMsg{seq: m.seq})
}

func (m *Model) continuePriming() tea.Cmd {
	res, err := m.session.Continue(context.Background())
	if err != nil {
		m.showError("failed to save progress", err)
	}
	if res.StageComplete {
		m.waiting = true
		m.feedback = "Stage complete. Neural priming locked in."
		m.feedbackKind = feedbackGood
		return delay(homeDelay, homeMsg{seq: m.seq})
	}
	return m.ask()
}

func (m *Model) reset() {
	if err := m.session.Reset(context.Background()); err != nil {
		m.showError("failed to reset progress", err)
		return
	}
	m.errMsg = ""
}

func (m *Model) loadStats() {
	width := statsWidth
	if m.width > 0 && m.width-4 < width {
		width = m.width - 4
	}
	r, err := m.buildReport()
	if err != nil {
		m.statsView = dangerStyle.Render(fmt.Sprintf("stats unavailable: %v", err))
		return
	}
	var b strings.Builder
	b.WriteString(statsui.RenderOverview(r, m.cfg.CurveWindow, width, m.now()))
	b.WriteString("\n\n")
	if err := stats.RenderNoteTable(&b, r.Notes); err != nil {
		m.statsView = dangerStyle.Render(fmt.Sprintf("stats unavailable: %v", err))
		return
	}
	m.statsView = strings.TrimRight(b.String(), "\n")
}

func (m *Model) buildReport() (stats.Report, error) {
	v := m.session.Variant()
	if m.source != nil {
		return stats.BuildReport(context.Background(), m.source, v, m.cfg)
	}
	p := m.session.Profile()
	return stats.Report{
		Variant:   v,
		Profile:   p,
		Dashboard: stats.Summarize(p),
		Notes:     stats.NoteRows(p),
		Practice:  "none",
	}, nil
}

func (m *Model) showError(msg string, err error) {
	m.errMsg = fmt.Sprintf("%s: %v", msg, err)
	m.log.Error(msg, zap.Error(err))
}

func (m *Model) renderHome() string {
	v := m.session.Variant()
	p := m.session.Profile()
	lines := []string{
		titleStyle.Render("staffdrill") + mutedStyle.Render(" · "+v.Name),
		"",
		m.renderDashboard(stats.Summarize(p)),
		"",
	}
	for i, st := range v.Stages {
		status := trainer.StageStatus(p.CurrentStage, i)
		line := fmt.Sprintf("%-9s %s", status, st.Title)
		switch status {
		case "Active":
			lines = append(lines, accentStyle.Render(line))
			lines = append(lines, mutedStyle.Render("          "+st.Goal))
			lines = append(lines, mutedStyle.Render("          "+st.Description))
		case "Complete":
			lines = append(lines, successStyle.Render(line))
		default:
			lines = append(lines, mutedStyle.Render(line))
		}
	}
	lines = append(lines, "")
	if m.confirmReset {
		lines = append(lines, dangerStyle.Render("Reset all progress? y/n"))
	} else {
		lines = append(lines, mutedStyle.Render("enter start · s stats · r reset · q quit"))
	}
	if m.errMsg != "" {
		lines = append(lines, dangerStyle.Render(m.errMsg))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderDashboard(d stats.Dashboard) string {
	segments := []string{
		fmt.Sprintf("Mastered %d/%d", d.Mastered, d.Notes),
		"Accuracy " + stats.FormatPercent(d.Accuracy),
		fmt.Sprintf("Streak %d", d.Streak),
		"Avg reaction " + stats.FormatReaction(d.AvgReactionMs),
		"Last session " + stats.LastSessionText(d.LastSession, m.now()),
	}
	return textStyle.Render(strings.Join(segments, " · "))
}

func (m *Model) renderTraining() string {
	stage := m.session.Stage()
	lines := []string{titleStyle.Render(stage.Title)}

	step := -1
	status := ""
	overlay := ""
	switch {
	case m.exposure != nil:
		step = m.exposure.Position.Note.Step
		status = m.exposure.Status
		overlay = m.exposure.Position.Label + " position"
	case m.question != nil:
		step = m.question.Note.Step
		status = m.question.Status
		if !m.listenUntil.IsZero() && m.now().Before(m.listenUntil) {
			overlay = "Listen"
		}
	}
	lines = append(lines, mutedStyle.Render(status), "")
	lines = append(lines, renderStaff(step, staffWidth)...)
	lines = append(lines, accentStyle.Render(overlay), "")

	if m.question != nil {
		lines = append(lines, renderMemory(m.mastery))
		lines = append(lines, renderChoices(m.question.Choices, m.picked, m.reveal))
		if m.question.TimeLimit > 0 {
			lines = append(lines, m.timer.ViewAs(m.remaining()))
		}
	}
	lines = append(lines, "", m.renderFeedback())

	hint := "1-4 or a note letter to answer · esc home"
	if m.exposure != nil {
		hint = "enter continue · esc home"
	}
	lines = append(lines, mutedStyle.Render(hint))
	if m.errMsg != "" {
		lines = append(lines, dangerStyle.Render(m.errMsg))
	}
	return strings.Join(lines, "\n")
}

// remaining returns the unused share of the question's time limit.
func (m *Model) remaining() float64 {
	if m.question == nil || m.question.TimeLimit <= 0 || m.waiting {
		return 0
	}
	elapsed := m.now().Sub(m.question.AskedAt)
	left := 1 - float64(elapsed)/float64(m.question.TimeLimit)
	return max(0, min(1, left))
}

func (m *Model) renderFeedback() string {
	switch m.feedbackKind {
	case feedbackGood:
		return successStyle.Render(m.feedback)
	case feedbackBad:
		return dangerStyle.Render(m.feedback)
	default:
		return mutedStyle.Render(m.feedback)
	}
}

func renderMemory(mastery float64) string {
	return masteryStyle(mastery).Render(fmt.Sprintf("Memory %.0f", mastery))
}

// masteryBand classifies a mastery score for the memory indicator.
func masteryBand(mastery float64) string {
	switch {
	case mastery < 40:
		return "danger"
	case mastery < 70:
		return "warning"
	default:
		return "success"
	}
}

func masteryStyle(mastery float64) lipgloss.Style {
	switch masteryBand(mastery) {
	case "danger":
		return dangerStyle
	case "warning":
		return warningStyle
	default:
		return successStyle
	}
}

func (m *Model) renderFooter() string {
	if m.panel != panelTraining {
		return ""
	}
	return footerStyle.Render(footerText(m.session.Counters(), stats.Summarize(m.session.Profile())))
}

func footerText(c model.SessionCounters, d stats.Dashboard) string {
	segments := []string{
		fmt.Sprintf("Session %d/%d · %s", c.Correct, c.Attempts, stats.FormatPercent(c.Accuracy())),
	}
	if c.Correct > 0 {
		segments = append(segments, "Avg "+stats.FormatReaction(c.AvgReactionMs()))
	}
	segments = append(segments, fmt.Sprintf("Streak %d", d.Streak))
	segments = append(segments, fmt.Sprintf("Mastered %d/%d", d.Mastered, d.Notes))
	return strings.Join(segments, "  ")
}

func tick(id int) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{id: id}
	})
}

func delay(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return msg
	})
}
