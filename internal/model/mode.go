package model

import (
	"encoding"
	"encoding/json"
	"fmt"
	"time"
)

// Mode tags how a stage quizzes and when it is complete.
type Mode int

const (
	ModePriming Mode = iota + 1 // Visual exposure only, no answers.
	ModeSingle                  // One note at a time until it sticks.
	ModeMulti                   // Small discrimination set.
	ModeReflex                  // Full catalog, streak driven.
	ModeAudio                   // Tone leads, staff confirms.
	ModeStress                  // Timed mixed questions.
	ModeRetention               // Weak-first maintenance drill.
	ModeFree                    // Always-active loop without advancement.
)

var (
	modeNames = [...]string{
		ModePriming:   "priming",
		ModeSingle:    "single",
		ModeMulti:     "multi",
		ModeReflex:    "reflex",
		ModeAudio:     "audio",
		ModeStress:    "stress",
		ModeRetention: "retention",
		ModeFree:      "free",
	}
	modeByName = map[string]Mode{
		"priming":   ModePriming,
		"single":    ModeSingle,
		"multi":     ModeMulti,
		"reflex":    ModeReflex,
		"audio":     ModeAudio,
		"stress":    ModeStress,
		"retention": ModeRetention,
		"free":      ModeFree,
	}
)

var (
	_ fmt.Stringer             = Mode(0)
	_ json.Marshaler           = Mode(0)
	_ json.Unmarshaler         = (*Mode)(nil)
	_ encoding.TextMarshaler   = Mode(0)
	_ encoding.TextUnmarshaler = (*Mode)(nil)
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m >= ModePriming && m <= ModeFree
}

// String returns the mode tag, or "Mode(n)" for unknown values.
func (m Mode) String() string {
	if m.IsValid() {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("model: invalid mode: %d", int(m))
	}
	return []byte(modeNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, ok := modeByName[string(text)]
	if !ok {
		return fmt.Errorf("model: invalid mode: %q", text)
	}
	*m = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Mode) MarshalJSON() ([]byte, error) {
	text, err := m.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("model: invalid mode: %s", data)
	}
	return m.UnmarshalText([]byte(s))
}

// ParseMode converts a tag such as "reflex" into a Mode.
func ParseMode(s string) (Mode, error) {
	var m Mode
	if err := m.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return m, nil
}

// Stage is one static curriculum step. Zero thresholds are unused by the mode.
type Stage struct {
	ID                int
	Title             string
	Goal              string
	Description       string
	Mode              Mode
	ExposuresRequired int
	MinRepsPerNote    int
	NoteCount         int
	TimeLimit         time.Duration
	AccuracyTarget    float64
	ReactionTarget    time.Duration
	StreakTarget      int
	QuestionTarget    int
	AttemptTarget     int
}

// Timed reports whether questions in the stage carry a deadline.
func (s Stage) Timed() bool {
	return s.TimeLimit > 0
}
