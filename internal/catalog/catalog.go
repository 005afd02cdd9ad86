// Package catalog holds the static note reference data.
package catalog

// Note describes one diatonic note on the treble staff.
type Note struct {
	Name  string
	Label string
	// Y is the staff coordinate class; lower values sit higher on the staff.
	Y int
	// Step is the diatonic position above C4 (0 = first ledger line below the staff).
	Step int
	Freq float64
}

var notes = [...]Note{
	{Name: "C4", Label: "C", Y: 110, Step: 0, Freq: 261.63},
	{Name: "D4", Label: "D", Y: 102, Step: 1, Freq: 293.66},
	{Name: "E4", Label: "E", Y: 94, Step: 2, Freq: 329.63},
	{Name: "F4", Label: "F", Y: 86, Step: 3, Freq: 349.23},
	{Name: "G4", Label: "G", Y: 78, Step: 4, Freq: 392.0},
	{Name: "A4", Label: "A", Y: 70, Step: 5, Freq: 440.0},
	{Name: "B4", Label: "B", Y: 62, Step: 6, Freq: 493.88},
}

// Position is a named priming placement on the staff.
type Position struct {
	Label string
	Note  Note
}

var positions = [...]Position{
	{Label: "Low", Note: notes[1]},
	{Label: "Middle", Note: notes[3]},
	{Label: "High", Note: notes[6]},
}

// Len returns the number of catalog notes.
func Len() int {
	return len(notes)
}

// Notes returns a copy of the catalog in staff order.
func Notes() []Note {
	out := make([]Note, len(notes))
	copy(out, notes[:])
	return out
}

// At returns the note at index i. It panics when i is out of range.
func At(i int) Note {
	return notes[i]
}

// Labels returns the answer labels in catalog order.
func Labels() []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Label
	}
	return out
}

// ByName looks up a note by its scientific name ("C4").
func ByName(name string) (Note, int, bool) {
	for i, n := range notes {
		if n.Name == name {
			return n, i, true
		}
	}
	return Note{}, -1, false
}

// IndexOfLabel returns the catalog index for an answer label, or -1.
func IndexOfLabel(label string) int {
	for i, n := range notes {
		if n.Label == label {
			return i
		}
	}
	return -1
}

// PrimingPosition returns the placement shown for the i-th priming exposure.
func PrimingPosition(i int) Position {
	if i < 0 {
		i = -i
	}
	return positions[i%len(positions)]
}
