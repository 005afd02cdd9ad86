package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/profile"
	"github.com/verte-zerg/staffdrill/internal/trainer"
)

// Source is the read side of the store used for reports.
type Source interface {
	LoadProfile(ctx context.Context, key string) ([]byte, bool, error)
	ListAnswers(ctx context.Context, cfg model.StatsConfig) ([]model.Answer, error)
	ListDailySummaries(ctx context.Context, cfg model.StatsConfig) ([]model.DailySummary, error)
}

// StageRow summarizes the answers given in one stage.
type StageRow struct {
	ID       int
	Title    string
	Goal     string
	Status   string
	Attempts int
	Accuracy float64
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Variant   curriculum.Variant
	Profile   model.Profile
	Dashboard Dashboard
	Notes     []NoteRow
	Stages    []StageRow
	Days      []model.DailySummary
	Answers   []model.Answer
	Practice  string
	// Malformed is set when the stored profile could not be read and
	// defaults are shown instead.
	Malformed bool
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, v curriculum.Variant, cfg model.StatsConfig) (Report, error) {
	cfg.ProfileKey = v.StorageKey
	raw, _, err := src.LoadProfile(ctx, v.StorageKey)
	if err != nil {
		return Report{}, err
	}
	p, decodeErr := profile.Decode(raw, v)

	answers, err := src.ListAnswers(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	days, err := src.ListDailySummaries(ctx, cfg)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Variant:   v,
		Profile:   p,
		Dashboard: Summarize(p),
		Notes:     NoteRows(p),
		Stages:    StageRows(v, p.CurrentStage, answers),
		Days:      days,
		Answers:   answers,
		Practice:  PracticeTime(answers),
		Malformed: decodeErr != nil,
	}, nil
}

// StageRows aggregates answers per stage of the variant.
func StageRows(v curriculum.Variant, current int, answers []model.Answer) []StageRow {
	rows := make([]StageRow, len(v.Stages))
	index := make(map[int]int, len(v.Stages))
	for i, st := range v.Stages {
		rows[i] = StageRow{
			ID:     st.ID,
			Title:  st.Title,
			Goal:   st.Goal,
			Status: trainer.StageStatus(current, i),
		}
		index[st.ID] = i
	}
	correct := make([]int, len(rows))
	for _, a := range answers {
		i, ok := index[a.StageID]
		if !ok {
			continue
		}
		rows[i].Attempts++
		if a.Correct {
			correct[i]++
		}
	}
	for i := range rows {
		if rows[i].Attempts > 0 {
			rows[i].Accuracy = float64(correct[i]) / float64(rows[i].Attempts)
		}
	}
	return rows
}

// RenderStages prints the stage list.
func RenderStages(w io.Writer, rows []StageRow) error {
	if _, err := fmt.Fprintln(w, "Stages"); err != nil {
		return err
	}
	headers := []string{"Stage", "Status", "Answers", "Accuracy"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		acc := "-"
		if r.Attempts > 0 {
			acc = FormatPercent(r.Accuracy)
		}
		tableRows = append(tableRows, []string{r.Title, r.Status, fmt.Sprintf("%d", r.Attempts), acc})
	}
	for _, line := range formatTable(headers, tableRows, map[int]bool{2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// Render prints the full plain-text report.
func Render(w io.Writer, r Report, window int, now time.Time) error {
	if r.Malformed {
		if _, err := fmt.Fprintln(w, "Stored progress could not be read; showing defaults."); err != nil {
			return err
		}
	}
	if err := RenderDashboard(w, r.Dashboard, r.Practice, now); err != nil {
		return err
	}
	if err := RenderNoteTable(w, r.Notes); err != nil {
		return err
	}
	if len(r.Stages) > 1 {
		if err := RenderStages(w, r.Stages); err != nil {
			return err
		}
	}
	return RenderDaily(w, r.Days, window)
}
