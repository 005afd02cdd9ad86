package trainer

import (
	"math"
	"time"

	"github.com/verte-zerg/staffdrill/internal/model"
)

const day = 24 * time.Hour

// ApplyDecay lowers every note's mastery by perDay for each whole day elapsed
// since the later of LastSession and DecayedThrough. Without a LastSession
// nothing happens. DecayedThrough advances by the days consumed, so applying
// decay again without elapsed time is a no-op. The input is not mutated.
func ApplyDecay(p model.Profile, now time.Time, perDay float64) model.Profile {
	out := p.Clone()
	if perDay <= 0 {
		return out
	}
	if out.LastSession == nil {
		return out
	}
	anchor := decayAnchor(out)
	days := int(math.Floor(float64(now.Sub(*anchor)) / float64(day)))
	if days <= 0 {
		return out
	}
	loss := float64(days) * perDay
	for i := range out.Notes {
		out.Notes[i].Mastery = math.Max(0, out.Notes[i].Mastery-loss)
	}
	through := anchor.Add(time.Duration(days) * day)
	out.DecayedThrough = &through
	return out
}

func decayAnchor(p model.Profile) *time.Time {
	if p.DecayedThrough != nil && p.DecayedThrough.After(*p.LastSession) {
		return p.DecayedThrough
	}
	return p.LastSession
}
