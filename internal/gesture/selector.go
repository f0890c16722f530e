package gesture

import "gesture-quiz-service/internal/domain"

// Phase is the pointing step a mapping question is waiting on.
type Phase string

const (
	PhaseSelectItem   Phase = "select_item"
	PhaseSelectTarget Phase = "select_target"
)

// SelectorState is the item -> target mapping built so far by pointing scans.
// Transitions never mutate the receiver's map; Apply returns a fresh state.
type SelectorState struct {
	Phase   Phase       `json:"phase"`
	Pending *int        `json:"pending"`
	Mapping map[int]int `json:"mapping"`
}

// NewSelector returns the initial state for a mapping question.
func NewSelector() SelectorState {
	return SelectorState{Phase: PhaseSelectItem, Mapping: map[int]int{}}
}

// Candidates lists the position labels a scan may resolve to in the current
// phase: unmapped items while picking an item, every target while placing one.
func (s SelectorState) Candidates(q domain.MappingQuestion) []string {
	if s.Phase == PhaseSelectTarget {
		return domain.PositionLabels(len(q.Targets))
	}
	labels := make([]string, 0, len(q.Items))
	for i := range q.Items {
		if _, mapped := s.Mapping[i]; mapped {
			continue
		}
		if label, ok := domain.PositionLabel(i); ok {
			labels = append(labels, label)
		}
	}
	return labels
}

// Apply folds one pointing result into the state. Labels that point at an
// already mapped item, an already claimed target, or nothing addressable leave
// the state unchanged.
func (s SelectorState) Apply(q domain.MappingQuestion, label string) SelectorState {
	index, ok := domain.PositionIndex(label)
	if !ok {
		return s
	}
	switch s.Phase {
	case PhaseSelectItem:
		if index >= len(q.Items) || s.itemMapped(index) {
			return s
		}
		pending := index
		return SelectorState{Phase: PhaseSelectTarget, Pending: &pending, Mapping: s.Mapping}
	case PhaseSelectTarget:
		if s.Pending == nil || index >= len(q.Targets) || s.targetClaimed(index) {
			return s
		}
		mapping := s.cloneMapping()
		mapping[*s.Pending] = index
		return SelectorState{Phase: PhaseSelectItem, Mapping: mapping}
	}
	return s
}

// Complete reports whether every item has been placed.
func (s SelectorState) Complete(q domain.MappingQuestion) bool {
	for i := range q.Items {
		if !s.itemMapped(i) {
			return false
		}
	}
	return true
}

// Snapshot returns a deep copy safe to hand to other goroutines.
func (s SelectorState) Snapshot() SelectorState {
	out := SelectorState{Phase: s.Phase, Mapping: s.cloneMapping()}
	if s.Pending != nil {
		pending := *s.Pending
		out.Pending = &pending
	}
	return out
}

func (s SelectorState) itemMapped(item int) bool {
	_, ok := s.Mapping[item]
	return ok
}

func (s SelectorState) targetClaimed(target int) bool {
	for _, claimed := range s.Mapping {
		if claimed == target {
			return true
		}
	}
	return false
}

func (s SelectorState) cloneMapping() map[int]int {
	out := make(map[int]int, len(s.Mapping)+1)
	for k, v := range s.Mapping {
		out[k] = v
	}
	return out
}
