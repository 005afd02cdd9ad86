// Package model defines shared data structures.
package model

import (
	"math"
	"time"
)

// Config defines practice settings.
type Config struct {
	Variant     string
	TimeLimit   time.Duration
	Mute        bool
	Volume      float64
	DecayPerDay float64
	Seed        int64
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	ProfileKey  string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// NoteState is the learned state of a single catalog note.
type NoteState struct {
	Name            string  `json:"name"`
	Label           string  `json:"label"`
	Mastery         float64 `json:"mastery"`
	Attempts        int     `json:"attempts"`
	Correct         int     `json:"correct"`
	ReactionTotalMs int64   `json:"reactionTotal"`
}

// Accuracy returns correct/attempts, or 0 before the first attempt.
func (n NoteState) Accuracy() float64 {
	if n.Attempts == 0 {
		return 0
	}
	return float64(n.Correct) / float64(n.Attempts)
}

// AvgReactionMs returns the mean reaction across correct answers, or 0.
func (n NoteState) AvgReactionMs() float64 {
	if n.Correct == 0 {
		return 0
	}
	return float64(n.ReactionTotalMs) / float64(n.Correct)
}

// StageProgress holds stage-specific sub-counters.
type StageProgress struct {
	PrimingExposures int `json:"primingExposures"`
	SingleNoteIndex  int `json:"singleNoteIndex"`
}

// Profile is the durable learner state.
type Profile struct {
	Notes          []NoteState   `json:"notes"`
	TotalAttempts  int           `json:"totalAttempts"`
	TotalCorrect   int           `json:"totalCorrect"`
	Streak         int           `json:"streak"`
	LastSession    *time.Time    `json:"lastSession"`
	DecayedThrough *time.Time    `json:"decayedThrough,omitempty"`
	CurrentStage   int           `json:"currentStage"`
	StageProgress  StageProgress `json:"stageProgress"`
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	out.Notes = make([]NoteState, len(p.Notes))
	copy(out.Notes, p.Notes)
	if p.LastSession != nil {
		v := *p.LastSession
		out.LastSession = &v
	}
	if p.DecayedThrough != nil {
		v := *p.DecayedThrough
		out.DecayedThrough = &v
	}
	return out
}

// SessionCounters are the in-memory counters of one practice run.
type SessionCounters struct {
	Attempts        int
	Correct         int
	ReactionTotalMs int64
	StressQuestions int
}

// Accuracy returns the session accuracy, 0 when nothing was answered.
func (c SessionCounters) Accuracy() float64 {
	if c.Attempts == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Attempts)
}

// AvgReactionMs returns the mean reaction of correct answers. Without any
// correct answer it is +Inf so that no "at most" target is met.
func (c SessionCounters) AvgReactionMs() float64 {
	if c.Correct == 0 {
		return math.Inf(1)
	}
	return float64(c.ReactionTotalMs) / float64(c.Correct)
}

// Answer is one resolved question in the history log.
type Answer struct {
	SessionID  string
	ProfileKey string
	StageID    int
	Mode       Mode
	Note       string
	Chosen     string
	Correct    bool
	TimedOut   bool
	ReactionMs int64
	Mastery    float64
	AnsweredAt time.Time
}

// DailySummary aggregates answers for one calendar day.
type DailySummary struct {
	Day        time.Time
	Attempts   int
	Correct    int
	ReactionMs int64
	Sessions   int
}
