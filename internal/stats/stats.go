// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"github.com/verte-zerg/staffdrill/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MasteredThreshold is the mastery at which a note counts as mastered.
const MasteredThreshold = 85

// NoteRow is one line of the per-note table.
type NoteRow struct {
	Name          string
	Label         string
	Accuracy      float64
	AvgReactionMs float64
	Mastery       float64
	Attempts      int
	Correct       int
}

// Dashboard is the headline summary of a profile.
type Dashboard struct {
	Mastered      int
	Notes         int
	Accuracy      float64
	Streak        int
	AvgReactionMs float64
	TotalAttempts int
	LastSession   *time.Time
}

// NoteRows builds the per-note table in catalog order.
func NoteRows(p model.Profile) []NoteRow {
	rows := make([]NoteRow, len(p.Notes))
	for i, n := range p.Notes {
		rows[i] = NoteRow{
			Name:          n.Name,
			Label:         n.Label,
			Accuracy:      n.Accuracy(),
			AvgReactionMs: n.AvgReactionMs(),
			Mastery:       n.Mastery,
			Attempts:      n.Attempts,
			Correct:       n.Correct,
		}
	}
	return rows
}

// Summarize computes the dashboard for a profile.
func Summarize(p model.Profile) Dashboard {
	d := Dashboard{
		Notes:         len(p.Notes),
		Streak:        p.Streak,
		TotalAttempts: p.TotalAttempts,
		LastSession:   p.LastSession,
	}
	if p.TotalAttempts > 0 {
		d.Accuracy = float64(p.TotalCorrect) / float64(p.TotalAttempts)
	}
	var reaction int64
	correct := 0
	for _, n := range p.Notes {
		if n.Mastery >= MasteredThreshold {
			d.Mastered++
		}
		reaction += n.ReactionTotalMs
		correct += n.Correct
	}
	if correct > 0 {
		d.AvgReactionMs = float64(reaction) / float64(correct)
	}
	return d
}

// LastSessionText renders the last session relative to now.
func LastSessionText(last *time.Time, now time.Time) string {
	if last == nil {
		return "never"
	}
	return humanize.RelTime(*last, now, "ago", "from now")
}

// PracticeTime sums the reaction time of answers as a readable duration.
func PracticeTime(answers []model.Answer) string {
	var total int64
	for _, a := range answers {
		total += a.ReactionMs
	}
	if total < 1000 {
		return "none"
	}
	d := time.Duration(total) * time.Millisecond
	return durafmt.Parse(d.Truncate(time.Second)).LimitFirstN(2).String()
}

// FormatReaction renders a reaction average, or "-" without data.
func FormatReaction(ms float64) string {
	if ms <= 0 || math.IsInf(ms, 0) || math.IsNaN(ms) {
		return "-"
	}
	return fmt.Sprintf("%.0f ms", ms)
}

// FormatPercent renders a 0..1 ratio as a percentage.
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}

// DailyAccuracy returns per-day accuracy in percent.
func DailyAccuracy(days []model.DailySummary) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		if d.Attempts > 0 {
			out[i] = float64(d.Correct) / float64(d.Attempts) * 100
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderDashboard prints the headline summary.
func RenderDashboard(w io.Writer, d Dashboard, practice string, now time.Time) error {
	lines := []string{
		"Summary",
		fmt.Sprintf("Mastered: %d/%d", d.Mastered, d.Notes),
		fmt.Sprintf("Accuracy: %s (%d answers)", FormatPercent(d.Accuracy), d.TotalAttempts),
		fmt.Sprintf("Streak: %d", d.Streak),
		fmt.Sprintf("Avg reaction: %s", FormatReaction(d.AvgReactionMs)),
		fmt.Sprintf("Practice time: %s", practice),
		fmt.Sprintf("Last session: %s", LastSessionText(d.LastSession, now)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderNoteTable prints the per-note table.
func RenderNoteTable(w io.Writer, rows []NoteRow) error {
	if _, err := fmt.Fprintln(w, "Notes"); err != nil {
		return err
	}
	headers := []string{"Note", "Accuracy", "Avg Reaction", "Mastery", "Attempts"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.Label,
			FormatPercent(r.Accuracy),
			FormatReaction(r.AvgReactionMs),
			fmt.Sprintf("%.0f", r.Mastery),
			fmt.Sprintf("%d", r.Attempts),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderDaily prints the per-day history with an accuracy sparkline.
func RenderDaily(w io.Writer, days []model.DailySummary, window int) error {
	if len(days) == 0 {
		_, err := fmt.Fprintln(w, "No answers recorded yet.")
		return err
	}
	curve := MovingAverage(DailyAccuracy(days), window)
	if _, err := fmt.Fprintf(w, "Daily accuracy (avg %d) [%s]\n", max(window, 1), Sparkline(curve)); err != nil {
		return err
	}
	headers := []string{"Day", "Sessions", "Answers", "Accuracy", "Avg Reaction"}
	tableRows := make([][]string, 0, len(days))
	for _, d := range days {
		acc := 0.0
		avg := 0.0
		if d.Attempts > 0 {
			acc = float64(d.Correct) / float64(d.Attempts)
		}
		if d.Correct > 0 {
			avg = float64(d.ReactionMs) / float64(d.Correct)
		}
		tableRows = append(tableRows, []string{
			d.Day.Format("2006-01-02"),
			fmt.Sprintf("%d", d.Sessions),
			fmt.Sprintf("%d", d.Attempts),
			FormatPercent(acc),
			FormatReaction(avg),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
