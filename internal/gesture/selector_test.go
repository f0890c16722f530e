package gesture

import (
	"reflect"
	"testing"

	"gesture-quiz-service/internal/domain"
)

func threeItemQuestion() domain.MappingQuestion {
	return domain.MappingQuestion{
		ID:             "q-map",
		Items:          []string{"Cat", "Dog", "Cow"},
		Targets:        []string{"Woof", "Meow", "Moo"},
		CorrectMapping: map[int]int{0: 1, 1: 0, 2: 2},
	}
}

func TestSelectorTwoPhaseMapping(t *testing.T) {
	q := threeItemQuestion()
	state := NewSelector()

	state = state.Apply(q, "A")
	if state.Phase != PhaseSelectTarget || state.Pending == nil || *state.Pending != 0 {
		t.Fatalf("expected item A pending, got %+v", state)
	}
	state = state.Apply(q, "B")
	if state.Phase != PhaseSelectItem || state.Pending != nil || state.Mapping[0] != 1 {
		t.Fatalf("expected A placed on B, got %+v", state)
	}
}

func TestSelectorIgnoresMappedItem(t *testing.T) {
	q := threeItemQuestion()
	state := NewSelector().Apply(q, "A").Apply(q, "B")
	before := state.Snapshot()

	for i := 0; i < 3; i++ {
		state = state.Apply(q, "A")
	}
	if state.Phase != PhaseSelectItem || !reflect.DeepEqual(state.Mapping, before.Mapping) {
		t.Fatalf("re-selecting a mapped item changed state: %+v", state)
	}
}

func TestSelectorIgnoresClaimedTarget(t *testing.T) {
	q := threeItemQuestion()
	state := NewSelector().Apply(q, "A").Apply(q, "B")
	state = state.Apply(q, "B") // item B pending
	state = state.Apply(q, "B") // target B already claimed by item A
	if state.Phase != PhaseSelectTarget || len(state.Mapping) != 1 {
		t.Fatalf("claimed target accepted: %+v", state)
	}
}

func TestSelectorRepeatedScanIsIdempotent(t *testing.T) {
	q := threeItemQuestion()
	state := NewSelector().Apply(q, "C")
	state = state.Apply(q, "A")
	state = state.Apply(q, "A")
	if len(state.Mapping) != 1 || state.Mapping[2] != 0 {
		t.Fatalf("expected single mapping 2->0, got %+v", state.Mapping)
	}
	// The repeat is read as an item pick; placing it on the same target is refused.
	if state.Phase != PhaseSelectTarget || state.Pending == nil || *state.Pending != 0 {
		t.Fatalf("expected item A to become pending, got %+v", state)
	}
	state = state.Apply(q, "A")
	if len(state.Mapping) != 1 || state.Phase != PhaseSelectTarget {
		t.Fatalf("target A double-booked: %+v", state.Mapping)
	}
}

func TestSelectorCompletenessGate(t *testing.T) {
	q := threeItemQuestion()
	state := NewSelector()
	scans := []string{"A", "A", "NONE", "B", "C", "A", "B", "Z", "B"}
	for _, label := range scans {
		state = state.Apply(q, label)
		if len(state.Mapping) < len(q.Items) && state.Complete(q) {
			t.Fatalf("incomplete mapping reported complete: %+v", state.Mapping)
		}
	}
	state = NewSelector().Apply(q, "A").Apply(q, "B").Apply(q, "B").Apply(q, "A").Apply(q, "C").Apply(q, "C")
	if !state.Complete(q) {
		t.Fatalf("expected complete mapping, got %+v", state.Mapping)
	}
}

func TestSelectorCandidates(t *testing.T) {
	q := threeItemQuestion()
	state := NewSelector()
	if got := state.Candidates(q); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected item candidates %v", got)
	}
	state = state.Apply(q, "B")
	if got := state.Candidates(q); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected target candidates %v", got)
	}
	state = state.Apply(q, "A")
	if got := state.Candidates(q); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Fatalf("mapped item should not be a candidate, got %v", got)
	}
}
