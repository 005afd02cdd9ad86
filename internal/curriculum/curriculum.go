// Package curriculum defines the stage tables the trainer runs.
package curriculum

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/staffdrill/internal/catalog"
	"github.com/verte-zerg/staffdrill/internal/model"
)

// ErrUnknownVariant is returned by Lookup for an unrecognized name.
var ErrUnknownVariant = errors.New("curriculum: unknown variant")

const (
	StagedName = "staged"
	SimpleName = "simple"
)

// Variant bundles a stage table with its scoring constants.
type Variant struct {
	Name       string
	StorageKey string
	Stages     []model.Stage
	// WeightCeiling is K in the selection weight K - mastery.
	WeightCeiling  float64
	InitialMastery float64
	DecayPerDay    float64
}

// Stage returns the stage at idx clamped into range.
func (v Variant) Stage(idx int) model.Stage {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(v.Stages) {
		idx = len(v.Stages) - 1
	}
	return v.Stages[idx]
}

// Last returns the index of the terminal stage.
func (v Variant) Last() int {
	return len(v.Stages) - 1
}

// Staged returns the seven-stage curriculum.
func Staged() Variant {
	return Variant{
		Name:           StagedName,
		StorageKey:     "note-instinct-system",
		WeightCeiling:  120,
		InitialMastery: 40,
		DecayPerDay:    2,
		Stages: []model.Stage{
			{
				ID:                0,
				Title:             "Stage 0 - Neural Priming",
				Goal:              "Visual familiarity only. No scoring, no wrong answers.",
				Description:       "Observe high / middle / low positions. Let the staff become familiar.",
				Mode:              model.ModePriming,
				ExposuresRequired: 9,
			},
			{
				ID:             1,
				Title:          "Stage 1 - Single Note Imprinting",
				Goal:           "Burn each note into memory with slow, focused repetition.",
				Description:    "One note at a time. Reach 90% accuracy with minimum reps.",
				Mode:           model.ModeSingle,
				MinRepsPerNote: 8,
				AccuracyTarget: 0.9,
				NoteCount:      catalog.Len(),
			},
			{
				ID:             2,
				Title:          "Stage 2 - Multi-Note Discrimination",
				Goal:           "Recognize 3-5 notes without hesitation.",
				Description:    "Timed flashcards. Weak notes repeat more often.",
				Mode:           model.ModeMulti,
				NoteCount:      4,
				TimeLimit:      4000 * time.Millisecond,
				AccuracyTarget: 0.9,
				ReactionTarget: 2800 * time.Millisecond,
			},
			{
				ID:             3,
				Title:          "Stage 3 - Reflex Acceleration",
				Goal:           "Remove conscious thinking. Speed proves mastery.",
				Description:    "Strict 3-second limit. Streaks only.",
				Mode:           model.ModeReflex,
				TimeLimit:      3000 * time.Millisecond,
				StreakTarget:   10,
				AccuracyTarget: 0.9,
			},
			{
				ID:             4,
				Title:          "Stage 4 - Sensory Binding",
				Goal:           "Bind eye + ear. Audio leads, vision confirms.",
				Description:    "Hear, identify, then confirm visually.",
				Mode:           model.ModeAudio,
				TimeLimit:      3500 * time.Millisecond,
				AccuracyTarget: 0.9,
				AttemptTarget:  12,
			},
			{
				ID:             5,
				Title:          "Stage 5 - Automaticity & Stress Test",
				Goal:           "Prove mastery under pressure.",
				Description:    "Time attack. Mixed chaos. No patterns.",
				Mode:           model.ModeStress,
				TimeLimit:      2500 * time.Millisecond,
				AccuracyTarget: 0.9,
				ReactionTarget: 2000 * time.Millisecond,
				QuestionTarget: 20,
			},
			{
				ID:            6,
				Title:         "Stage 6 - Retention Lock-In",
				Goal:          "Prevent decay using spaced repetition.",
				Description:   "Daily micro sessions, weak notes first.",
				Mode:          model.ModeRetention,
				TimeLimit:     3000 * time.Millisecond,
				AttemptTarget: 10,
			},
		},
	}
}

// Simple returns the single-loop trainer. A zero timeLimit leaves questions untimed.
func Simple(timeLimit time.Duration) Variant {
	if timeLimit < 0 {
		timeLimit = 0
	}
	return Variant{
		Name:           SimpleName,
		StorageKey:     "note-trainer-simple",
		WeightCeiling:  110,
		InitialMastery: 50,
		Stages: []model.Stage{
			{
				ID:          0,
				Title:       "Free Practice",
				Goal:        "Name every note on sight.",
				Description: "All notes, weak notes first. Runs until you stop.",
				Mode:        model.ModeFree,
				TimeLimit:   timeLimit,
			},
		},
	}
}

// Lookup resolves a variant by name. timeLimit only applies to the simple variant.
func Lookup(name string, timeLimit time.Duration) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StagedName:
		return Staged(), nil
	case SimpleName:
		return Simple(timeLimit), nil
	default:
		return Variant{}, fmt.Errorf("%w: %q (available: %s, %s)", ErrUnknownVariant, name, StagedName, SimpleName)
	}
}

// Names lists the known variant names.
func Names() []string {
	return []string{StagedName, SimpleName}
}
