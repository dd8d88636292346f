// Package syncstatus turns the messages of a background sync process into the
// indicator shown next to the sync toggle.
package syncstatus

import (
	"strings"
	"time"
	"unicode"
)

// Level is the severity of a recorded status message.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// ParseLevel accepts "success" or "error" in any case.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelSuccess:
		return LevelSuccess, true
	case LevelError:
		return LevelError, true
	}
	return "", false
}

// Entry is one recorded status message.
type Entry struct {
	Message    string    `json:"message"`
	RecordedAt time.Time `json:"recordedAt"`
	Level      Level     `json:"level"`
}

// Variant is the visual state of the indicator.
type Variant string

const (
	VariantIdle    Variant = "idle"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

// Indicator is what the UI renders.
type Indicator struct {
	Variant Variant `json:"variant"`
	Label   string  `json:"label"`
}

const (
	LabelPaused  = "Sync paused"
	LabelWaiting = "Waiting for sync"
)

// Classifier infers a level for a message recorded without one.
type Classifier func(message string) Level

// DefaultClassifier reports an error when "error" appears anywhere in the
// message, ignoring case. "Error-free sync" is therefore an error.
func DefaultClassifier(message string) Level {
	if strings.Contains(strings.ToLower(message), "error") {
		return LevelError
	}
	return LevelSuccess
}

// WordClassifier reports an error only when "error" or "errors" is a word of
// its own. Hyphenated and underscored compounds such as "error-free" are a
// single word and do not match.
func WordClassifier(message string) Level {
	words := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	})
	for _, w := range words {
		if w == "error" || w == "errors" {
			return LevelError
		}
	}
	return LevelSuccess
}

// ComputeIndicator derives the indicator from the sync flag and the latest
// entry. latest is nil when nothing has been recorded.
func ComputeIndicator(enabled bool, latest *Entry) Indicator {
	switch {
	case !enabled:
		return Indicator{Variant: VariantIdle, Label: LabelPaused}
	case latest == nil:
		return Indicator{Variant: VariantIdle, Label: LabelWaiting}
	case latest.Level == LevelError:
		return Indicator{Variant: VariantError, Label: latest.Message}
	default:
		return Indicator{Variant: VariantSuccess, Label: latest.Message}
	}
}
