package gesture

import "gesture-quiz-service/internal/domain"

// VoterState tracks the current run of identical gesture classifications.
// The zero value has no leading candidate.
type VoterState struct {
	Leading domain.Gesture `json:"leading,omitempty"`
	Count   int            `json:"count"`
}

// Observe folds one classification into the vote and reports whether the
// leading gesture has now been seen threshold times in a row.
//
// An unknown label clears the run; a different label restarts it at one.
func (s VoterState) Observe(label domain.Gesture, threshold int) (VoterState, bool) {
	if !label.Known() {
		return VoterState{}, false
	}
	if label == s.Leading {
		s.Count++
	} else {
		s = VoterState{Leading: label, Count: 1}
	}
	if threshold < 1 {
		threshold = 1
	}
	return s, s.Count >= threshold
}
