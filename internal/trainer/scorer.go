// Package trainer implements scoring, decay, and stage progression for a
// practice session.
package trainer

import (
	"time"

	"github.com/verte-zerg/staffdrill/internal/model"
	"github.com/verte-zerg/staffdrill/internal/profile"
)

const (
	masteryGain    = 6
	masteryPenalty = 12
)

// Outcome describes how a single answer was scored.
type Outcome struct {
	Correct  bool
	TimedOut bool
	// Mastery is the note's score after the update.
	Mastery float64
	// CorrectLabel is set when the answer was wrong so it can be shown.
	CorrectLabel string
	Reaction     time.Duration
}

// Score applies an answer for p.Notes[idx]. An empty chosen label is the
// timeout sentinel and always counts as incorrect. Reaction time only
// accumulates for correct answers.
func Score(p *model.Profile, idx int, chosen string, elapsed time.Duration, now time.Time) Outcome {
	note := &p.Notes[idx]
	correct := chosen != "" && chosen == note.Label

	note.Attempts++
	p.TotalAttempts++
	if correct {
		note.Correct++
		p.TotalCorrect++
		p.Streak++
		note.ReactionTotalMs += elapsed.Milliseconds()
		note.Mastery = profile.ClampMastery(note.Mastery + masteryGain)
	} else {
		p.Streak = 0
		note.Mastery = profile.ClampMastery(note.Mastery - masteryPenalty)
	}
	p.LastSession = &now

	out := Outcome{
		Correct:  correct,
		TimedOut: chosen == "",
		Mastery:  note.Mastery,
		Reaction: elapsed,
	}
	if !correct {
		out.CorrectLabel = note.Label
	}
	return out
}
