package pipeline

import (
	"fmt"
	"strings"

	"rapidproto/internal/types"
)

// Phase is the 1-based index of a pipeline stage.
type Phase int

const (
	PhaseInput Phase = iota + 1
	PhaseExpansion
	PhaseRefinement
	PhaseGeneration
	PhaseFeedback
)

// Phases lists every phase in order.
var Phases = []Phase{PhaseInput, PhaseExpansion, PhaseRefinement, PhaseGeneration, PhaseFeedback}

var phaseNames = map[Phase]string{
	PhaseInput:      "input",
	PhaseExpansion:  "expansion",
	PhaseRefinement: "refinement",
	PhaseGeneration: "generation",
	PhaseFeedback:   "feedback",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) Valid() bool { return p >= PhaseInput && p <= PhaseFeedback }

// ParsePhase accepts a phase name or its 1-based number.
func ParsePhase(s string) (Phase, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range phaseNames {
		if name == s || fmt.Sprint(int(p)) == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("pipeline: unknown phase %q", s)
}

// PhaseRecord is the captured output of one phase.
type PhaseRecord struct {
	Completed bool `json:"completed"`
	Data      any  `json:"data,omitempty"`
}

// SessionState is owned by the Controller. Values handed out are deep copies.
type SessionState struct {
	SessionID    string                 `json:"sessionId"`
	CurrentPhase Phase                  `json:"currentPhase"`
	Phases       map[string]PhaseRecord `json:"phases"`
	Finished     bool                   `json:"finished"`
}

func newSessionState(id string) SessionState {
	phases := make(map[string]PhaseRecord, len(Phases))
	for _, p := range Phases {
		phases[p.String()] = PhaseRecord{}
	}
	return SessionState{SessionID: id, CurrentPhase: PhaseInput, Phases: phases}
}

func (s SessionState) Clone() SessionState {
	out := s
	out.Phases = make(map[string]PhaseRecord, len(s.Phases))
	for k, rec := range s.Phases {
		rec.Data = clonePayload(rec.Data)
		out.Phases[k] = rec
	}
	return out
}

// Record returns the record of phase p.
func (s SessionState) Record(p Phase) PhaseRecord { return s.Phases[p.String()] }

// capturePayload checks that payload is the type phase p produces and returns
// an independent copy of it.
func capturePayload(p Phase, payload any) (any, error) {
	switch p {
	case PhaseInput:
		if v, ok := payload.(types.IdeaInput); ok {
			return v.Clone(), nil
		}
	case PhaseExpansion:
		if v, ok := payload.(types.ExpandedSpecification); ok {
			return v.Clone(), nil
		}
	case PhaseRefinement:
		if v, ok := payload.(types.RefinementOutcome); ok {
			return v.Clone(), nil
		}
	case PhaseGeneration:
		if v, ok := payload.(types.GenerationOutcome); ok {
			return v.Clone(), nil
		}
	case PhaseFeedback:
		if v, ok := payload.(types.FeedbackOutcome); ok {
			return v.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s does not accept %T", ErrInvalidTransition, p, payload)
}

func clonePayload(v any) any {
	switch x := v.(type) {
	case types.IdeaInput:
		return x.Clone()
	case types.ExpandedSpecification:
		return x.Clone()
	case types.RefinementOutcome:
		return x.Clone()
	case types.GenerationOutcome:
		return x.Clone()
	case types.FeedbackOutcome:
		return x.Clone()
	default:
		return v
	}
}
