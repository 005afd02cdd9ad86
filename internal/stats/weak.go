package stats

import "sort"

// WeakestNotes returns up to n rows ordered by lowest mastery, then lowest
// accuracy. Rows are copied; the input order is kept.
func WeakestNotes(rows []NoteRow, n int) []NoteRow {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	candidates := make([]NoteRow, len(rows))
	copy(candidates, rows)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Mastery == candidates[j].Mastery {
			return candidates[i].Accuracy < candidates[j].Accuracy
		}
		return candidates[i].Mastery < candidates[j].Mastery
	})
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}
