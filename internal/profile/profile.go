// Package profile builds default learner state and decodes stored records.
//
// Stored records may come from older versions of the trainer (or from the
// browser app the format started in) and can be missing fields. Decode merges
// whatever a record provides over a fresh default profile, field by field, so
// added fields self-heal without losing accumulated progress.
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/staffdrill/internal/catalog"
	"github.com/verte-zerg/staffdrill/internal/curriculum"
	"github.com/verte-zerg/staffdrill/internal/model"
)

// ErrMalformed marks a stored record that could not be parsed.
var ErrMalformed = errors.New("profile: malformed record")

const maxMastery = 100

// record mirrors model.Profile with optional fields so absence is detectable.
type record struct {
	Notes          []noteRecord   `json:"notes"`
	TotalAttempts  *int           `json:"totalAttempts"`
	TotalCorrect   *int           `json:"totalCorrect"`
	Streak         *int           `json:"streak"`
	LastSession    *time.Time     `json:"lastSession"`
	DecayedThrough *time.Time     `json:"decayedThrough"`
	CurrentStage   *int           `json:"currentStage"`
	StageProgress  *stageProgress `json:"stageProgress"`
}

type stageProgress struct {
	PrimingExposures *int `json:"primingExposures"`
	SingleNoteIndex  *int `json:"singleNoteIndex"`
}

type noteRecord struct {
	Name          *string  `json:"name"`
	Mastery       *float64 `json:"mastery"`
	Attempts      *int     `json:"attempts"`
	Correct       *int     `json:"correct"`
	ReactionTotal *float64 `json:"reactionTotal"`
}

// Default returns a fresh profile for the variant.
func Default(v curriculum.Variant) model.Profile {
	notes := catalog.Notes()
	states := make([]model.NoteState, len(notes))
	for i, n := range notes {
		states[i] = model.NoteState{
			Name:    n.Name,
			Label:   n.Label,
			Mastery: v.InitialMastery,
		}
	}
	return model.Profile{Notes: states}
}

// Decode merges a stored record over the variant defaults. Empty input yields
// the defaults. Unparseable input yields the defaults and an ErrMalformed error.
func Decode(raw []byte, v curriculum.Variant) (model.Profile, error) {
	base := Default(v)
	if len(bytes.TrimSpace(raw)) == 0 {
		return base, nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return base, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	p := base
	setInt(&p.TotalAttempts, rec.TotalAttempts)
	setInt(&p.TotalCorrect, rec.TotalCorrect)
	setInt(&p.Streak, rec.Streak)
	setInt(&p.CurrentStage, rec.CurrentStage)
	if rec.LastSession != nil {
		t := *rec.LastSession
		p.LastSession = &t
	}
	if rec.DecayedThrough != nil {
		t := *rec.DecayedThrough
		p.DecayedThrough = &t
	}
	if rec.StageProgress != nil {
		setInt(&p.StageProgress.PrimingExposures, rec.StageProgress.PrimingExposures)
		setInt(&p.StageProgress.SingleNoteIndex, rec.StageProgress.SingleNoteIndex)
	}
	for i, nr := range rec.Notes {
		idx := i
		if nr.Name != nil {
			_, byName, ok := catalog.ByName(*nr.Name)
			if !ok {
				continue
			}
			idx = byName
		}
		if idx >= len(p.Notes) {
			continue
		}
		mergeNote(&p.Notes[idx], nr)
	}
	normalize(&p, v)
	return p, nil
}

// Encode serializes a profile for storage.
func Encode(p model.Profile) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return data, nil
}

func mergeNote(dst *model.NoteState, nr noteRecord) {
	if nr.Mastery != nil {
		dst.Mastery = *nr.Mastery
	}
	setInt(&dst.Attempts, nr.Attempts)
	setInt(&dst.Correct, nr.Correct)
	if nr.ReactionTotal != nil {
		dst.ReactionTotalMs = int64(*nr.ReactionTotal)
	}
}

func setInt(dst, value *int) {
	if value == nil {
		return
	}
	*dst = *value
}

// normalize restores the invariants a hand-edited record may violate.
func normalize(p *model.Profile, v curriculum.Variant) {
	for i := range p.Notes {
		n := &p.Notes[i]
		n.Mastery = ClampMastery(n.Mastery)
		n.Attempts = max(n.Attempts, 0)
		n.Correct = min(max(n.Correct, 0), n.Attempts)
		n.ReactionTotalMs = max(n.ReactionTotalMs, 0)
	}
	p.TotalAttempts = max(p.TotalAttempts, 0)
	p.TotalCorrect = min(max(p.TotalCorrect, 0), p.TotalAttempts)
	p.Streak = max(p.Streak, 0)
	p.CurrentStage = min(max(p.CurrentStage, 0), v.Last())
	p.StageProgress.PrimingExposures = max(p.StageProgress.PrimingExposures, 0)
	p.StageProgress.SingleNoteIndex = min(max(p.StageProgress.SingleNoteIndex, 0), len(p.Notes))
}

// ClampMastery bounds a mastery score to [0, 100].
func ClampMastery(m float64) float64 {
	if m != m { // NaN
		return 0
	}
	return min(max(m, 0), maxMastery)
}
