package valueobjects

import (
	"fmt"
	"strings"
)

// TutorMode selects how the tutor conducts the conversation
type TutorMode string

const (
	// ModeExplain is structured, step-by-step teaching
	ModeExplain TutorMode = "EXPLAIN"
	// ModePractice loops question, answer, feedback and hints
	ModePractice TutorMode = "PRACTICE"
	// ModeExamPrep predicts likely exam questions
	ModeExamPrep TutorMode = "EXAM_PREP"
)

// DefaultTutorMode is the mode a new session starts in
const DefaultTutorMode = ModeExplain

// ParseTutorMode parses a mode name, case-insensitively
func ParseTutorMode(s string) (TutorMode, error) {
	mode := TutorMode(strings.ToUpper(strings.TrimSpace(s)))
	if !mode.IsValid() {
		return "", fmt.Errorf("unknown tutor mode %q", s)
	}
	return mode, nil
}

// IsValid reports whether the mode is one of the known modes
func (m TutorMode) IsValid() bool {
	switch m {
	case ModeExplain, ModePractice, ModeExamPrep:
		return true
	}
	return false
}

// String returns the mode name
func (m TutorMode) String() string {
	return string(m)
}

// Theme is the light/dark flag handed to the render surface
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme returns the theme for s, defaulting to dark
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeLight)) {
		return ThemeLight
	}
	return ThemeDark
}
