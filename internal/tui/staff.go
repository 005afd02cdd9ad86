package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	// topStep is F5, the top line of the treble staff.
	topStep     = 10
	bottomLine  = 2
	clefStep    = 4
	clefGlyph   = "𝄞"
	noteGlyph   = 'O'
	lineGlyph   = '─'
	ledgerReach = 3
	marginWidth = 3
)

// renderStaff draws the treble staff from F5 down to C4, one row per
// diatonic step. When step is in range the note head is drawn in the middle
// column, with a short ledger line below the staff. A negative step draws
// the empty staff.
func renderStaff(step, width int) []string {
	if width < 2*ledgerReach+1 {
		width = 2*ledgerReach + 1
	}
	center := width / 2
	rows := make([]string, 0, topStep+1)
	for s := topStep; s >= 0; s-- {
		line := make([]rune, width)
		fill := ' '
		if onLine(s) {
			fill = lineGlyph
		}
		for i := range line {
			line[i] = fill
		}
		if s == step {
			if s < bottomLine && s%2 == 0 {
				for i := center - ledgerReach; i <= center+ledgerReach; i++ {
					line[i] = lineGlyph
				}
			}
			line[center] = noteGlyph
		}
		margin := ""
		if s == clefStep {
			margin = clefGlyph
		}
		rows = append(rows, runewidth.FillRight(margin, marginWidth)+string(line))
	}
	return rows
}

func onLine(step int) bool {
	return step >= bottomLine && step <= topStep && step%2 == 0
}

// renderChoices lays out the answer buttons on one row, each prefixed with
// its number key.
func renderChoices(choices []string, picked, correct string) string {
	cells := make([]string, len(choices))
	for i, c := range choices {
		label := runewidth.FillRight(c, 2)
		cell := "[" + string(rune('1'+i)) + "] " + label
		style := choiceStyle
		switch {
		case correct != "" && c == correct:
			style = correctChoiceStyle
		case picked != "" && c == picked:
			style = wrongChoiceStyle
		}
		cells[i] = style.Render(cell)
	}
	return strings.Join(cells, "  ")
}
