package trainer

import (
	"fmt"

	"github.com/verte-zerg/staffdrill/internal/model"
)

// Pool returns the note indexes a stage quizzes from. Priming has no pool.
func Pool(stage model.Stage, p model.Profile) []int {
	switch stage.Mode {
	case model.ModePriming:
		return nil
	case model.ModeSingle:
		idx := min(max(p.StageProgress.SingleNoteIndex, 0), len(p.Notes)-1)
		return []int{idx}
	case model.ModeMulti:
		return indexRange(min(stage.NoteCount, len(p.Notes)))
	default:
		return indexRange(len(p.Notes))
	}
}

func indexRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Completed reports whether the stage's pass criteria hold. Counters are the
// current session's; the streak is the profile streak.
func Completed(stage model.Stage, p model.Profile, c model.SessionCounters) bool {
	accuracyMet := c.Accuracy() >= stage.AccuracyTarget
	switch stage.Mode {
	case model.ModePriming:
		return p.StageProgress.PrimingExposures >= stage.ExposuresRequired
	case model.ModeSingle:
		return p.StageProgress.SingleNoteIndex >= stage.NoteCount
	case model.ModeMulti:
		return accuracyMet && c.AvgReactionMs() <= float64(stage.ReactionTarget.Milliseconds())
	case model.ModeReflex:
		return accuracyMet && p.Streak >= stage.StreakTarget
	case model.ModeAudio:
		return accuracyMet && c.Attempts >= stage.AttemptTarget
	case model.ModeStress:
		return accuracyMet &&
			c.AvgReactionMs() <= float64(stage.ReactionTarget.Milliseconds()) &&
			c.StressQuestions >= stage.QuestionTarget
	case model.ModeRetention:
		return c.Attempts >= stage.AttemptTarget
	default:
		return false
	}
}

// AdvanceNote moves the single-note drill to the next note once the drilled
// note has enough reps at the target accuracy. The streak restarts with the
// new note.
func AdvanceNote(stage model.Stage, p *model.Profile, idx int) bool {
	if stage.Mode != model.ModeSingle {
		return false
	}
	note := p.Notes[idx]
	if note.Attempts < stage.MinRepsPerNote || note.Accuracy() < stage.AccuracyTarget {
		return false
	}
	p.StageProgress.SingleNoteIndex++
	p.Streak = 0
	return true
}

// Advance moves to the next stage and clears every per-stage counter. At the
// last stage the index stays put and only the counters reset. It reports
// whether the stage index changed.
func Advance(p *model.Profile, c *model.SessionCounters, stageCount int) bool {
	moved := false
	if p.CurrentStage < stageCount-1 {
		p.CurrentStage++
		moved = true
	}
	*c = model.SessionCounters{}
	p.StageProgress = model.StageProgress{}
	return moved
}

// PhaseStatus is the short progress line shown above the staff.
func PhaseStatus(stage model.Stage, p model.Profile, c model.SessionCounters, label string) string {
	switch stage.Mode {
	case model.ModePriming:
		return fmt.Sprintf("Exposure %d/%d", p.StageProgress.PrimingExposures+1, stage.ExposuresRequired)
	case model.ModeSingle:
		return "Note " + label
	case model.ModeMulti:
		return "Discrimination set"
	case model.ModeReflex:
		return fmt.Sprintf("Streak %d/%d", p.Streak, stage.StreakTarget)
	case model.ModeAudio:
		return "Audio leads"
	case model.ModeStress:
		return fmt.Sprintf("Pressure %d/%d", c.StressQuestions, stage.QuestionTarget)
	case model.ModeRetention:
		return "Retention drill"
	default:
		return "Free practice"
	}
}
