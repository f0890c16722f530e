package gesture

import (
	"testing"

	"gesture-quiz-service/internal/domain"
)

func TestVoterConfirmsAfterThresholdIdenticalLabels(t *testing.T) {
	for _, threshold := range []int{1, 2, 3, 5} {
		state := VoterState{}
		confirmations := 0
		for i := 0; i < threshold; i++ {
			var confirmed bool
			state, confirmed = state.Observe(domain.GesturePeaceSign, threshold)
			if confirmed {
				confirmations++
				if i != threshold-1 {
					t.Fatalf("threshold %d: confirmed early at observation %d", threshold, i+1)
				}
			}
		}
		if confirmations != 1 {
			t.Fatalf("threshold %d: expected exactly one confirmation, got %d", threshold, confirmations)
		}
		if state.Leading != domain.GesturePeaceSign {
			t.Fatalf("threshold %d: expected peace sign to lead, got %s", threshold, state.Leading)
		}
	}
}

func TestVoterUnknownBreaksRun(t *testing.T) {
	state := VoterState{}
	state, _ = state.Observe(domain.GestureFist, 3)
	state, _ = state.Observe(domain.GestureFist, 3)
	state, confirmed := state.Observe(domain.GestureUnknown, 3)
	if confirmed || state.Count != 0 || state.Leading != "" {
		t.Fatalf("expected cleared state after unknown, got %+v", state)
	}

	state, _ = state.Observe(domain.GestureFist, 3)
	state, confirmed = state.Observe(domain.GestureFist, 3)
	if confirmed {
		t.Fatalf("partial counts carried over the unknown classification")
	}
	_, confirmed = state.Observe(domain.GestureFist, 3)
	if !confirmed {
		t.Fatalf("expected contiguous run of 3 to confirm")
	}
}

func TestVoterLabelChangeRestartsCount(t *testing.T) {
	state := VoterState{}
	state, _ = state.Observe(domain.GestureThumbsUp, 2)
	state, confirmed := state.Observe(domain.GestureOpenPalm, 2)
	if confirmed {
		t.Fatalf("different labels must not confirm")
	}
	if state.Leading != domain.GestureOpenPalm || state.Count != 1 {
		t.Fatalf("expected new run at 1, got %+v", state)
	}
	_, confirmed = state.Observe(domain.GestureOpenPalm, 2)
	if !confirmed {
		t.Fatalf("expected open palm to confirm")
	}
}
