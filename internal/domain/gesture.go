package domain

import (
	"strings"
	"time"
)

// Gesture is a classified hand pose.
type Gesture string

const (
	GestureThumbsUp  Gesture = "THUMBS_UP"
	GestureOpenPalm  Gesture = "OPEN_PALM"
	GesturePeaceSign Gesture = "PEACE_SIGN"
	GestureFist      Gesture = "FIST"
	GestureUnknown   Gesture = "UNKNOWN"
)

// Gestures lists the recognised vocabulary in option order: the first gesture
// selects option A, the second option B and so on.
var Gestures = []Gesture{GestureThumbsUp, GestureOpenPalm, GesturePeaceSign, GestureFist}

// PointNone is what the pointing classifier answers when no labeled region is targeted.
const PointNone = "NONE"

var positionLabels = []string{"A", "B", "C", "D"}

// ParseGesture maps raw classifier output to a Gesture. Anything outside the
// vocabulary becomes GestureUnknown.
func ParseGesture(raw string) Gesture {
	g := Gesture(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Gestures {
		if g == known {
			return g
		}
	}
	return GestureUnknown
}

// OptionIndex returns the answer option selected by the gesture.
func (g Gesture) OptionIndex() (int, bool) {
	for i, known := range Gestures {
		if g == known {
			return i, true
		}
	}
	return -1, false
}

// Known reports whether g is part of the vocabulary (UNKNOWN is not).
func (g Gesture) Known() bool {
	_, ok := g.OptionIndex()
	return ok
}

// PositionLabel returns the on-screen label (A, B, ...) for a position.
func PositionLabel(index int) (string, bool) {
	if index < 0 || index >= len(positionLabels) {
		return "", false
	}
	return positionLabels[index], true
}

// PositionIndex is the inverse of PositionLabel.
func PositionIndex(label string) (int, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	for i, l := range positionLabels {
		if l == label {
			return i, true
		}
	}
	return -1, false
}

// PositionLabels returns the first n addressable labels.
func PositionLabels(n int) []string {
	if n > len(positionLabels) {
		n = len(positionLabels)
	}
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	copy(out, positionLabels[:n])
	return out
}

// Frame is one camera snapshot.
type Frame struct {
	Data       []byte
	MIMEType   string
	CapturedAt time.Time
}
