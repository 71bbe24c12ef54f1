package refinement

import (
	"errors"
	"fmt"

	"rapidproto/internal/types"
)

var (
	ErrUnknownQuestion = errors.New("refinement: unknown question")
	ErrUnknownOption   = errors.New("refinement: value is not an option of the question")
	ErrSkipRequired    = errors.New("refinement: required questions cannot be skipped")
	ErrWrongType       = errors.New("refinement: answer does not match question type")
)

// IsAnswered reports whether q has an answer in answers. Multi-choice needs
// a non-empty selection; single-choice needs any recorded value, including
// the skipped sentinel.
func IsAnswered(q types.RefinementQuestion, answers types.AnswerSet) bool {
	a, ok := answers[q.ID]
	if !ok {
		return false
	}
	if a.IsSkipped() {
		return true
	}
	if q.Type == types.MultiChoice {
		return len(a.Values()) > 0
	}
	return a.Value() != ""
}

// CanProceed is true when every required question is answered with a real
// value. A skip never satisfies a required question.
func CanProceed(questions []types.RefinementQuestion, answers types.AnswerSet) bool {
	for _, q := range questions {
		if !q.Required {
			continue
		}
		if !IsAnswered(q, answers) || answers[q.ID].IsSkipped() {
			return false
		}
	}
	return true
}

// Progress counts answered questions.
func Progress(questions []types.RefinementQuestion, answers types.AnswerSet) (answered, total int) {
	for _, q := range questions {
		if IsAnswered(q, answers) {
			answered++
		}
	}
	return answered, len(questions)
}

// ManySelections is the selection count at which a multi-choice answer earns
// a scope warning.
const ManySelections = 3

// Warning flags a multi-choice answer with many selections.
type Warning struct {
	QuestionID string `json:"questionId"`
	Count      int    `json:"count"`
}

// Workspace holds one refinement round: the fixed question set, the answers
// recorded so far and the specification they produced. It is not safe for
// concurrent use; the pipeline serializes access.
type Workspace struct {
	table     *Table
	spec      types.ExpandedSpecification
	questions []types.RefinementQuestion
	byID      map[string]types.RefinementQuestion
	answers   types.AnswerSet
	changes   []string
}

// NewWorkspace starts refinement of spec. A nil table uses the default one.
func NewWorkspace(spec types.ExpandedSpecification, questions []types.RefinementQuestion, table *Table) *Workspace {
	if table == nil {
		table = defaultTable
	}
	qs := types.CloneQuestions(questions)
	byID := make(map[string]types.RefinementQuestion, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	return &Workspace{
		table:     table,
		spec:      spec,
		questions: qs,
		byID:      byID,
		answers:   types.AnswerSet{},
	}
}

func (w *Workspace) question(id string) (types.RefinementQuestion, error) {
	q, ok := w.byID[id]
	if !ok {
		return q, fmt.Errorf("%w: %q", ErrUnknownQuestion, id)
	}
	return q, nil
}

// Answer records a single-choice value and applies its patch.
func (w *Workspace) Answer(questionID, value string) error {
	q, err := w.question(questionID)
	if err != nil {
		return err
	}
	if q.Type == types.MultiChoice {
		return w.SetSelection(questionID, []string{value})
	}
	if !q.HasOption(value) {
		return fmt.Errorf("%w: %q for %q", ErrUnknownOption, value, questionID)
	}
	w.record(q, types.Single(value))
	return nil
}

// Toggle adds or removes value from a multi-choice selection and re-applies
// the patch for the full resulting selection.
func (w *Workspace) Toggle(questionID, value string) error {
	q, err := w.question(questionID)
	if err != nil {
		return err
	}
	if q.Type != types.MultiChoice {
		return fmt.Errorf("%w: %q is %s", ErrWrongType, questionID, q.Type)
	}
	current := w.answers[questionID].Values()
	next := make([]string, 0, len(current)+1)
	removed := false
	for _, v := range current {
		if v == value {
			removed = true
			continue
		}
		next = append(next, v)
	}
	if !removed {
		next = append(next, value)
	}
	return w.SetSelection(questionID, next)
}

// SetSelection replaces a multi-choice selection.
func (w *Workspace) SetSelection(questionID string, values []string) error {
	q, err := w.question(questionID)
	if err != nil {
		return err
	}
	if q.Type != types.MultiChoice {
		return fmt.Errorf("%w: %q is %s", ErrWrongType, questionID, q.Type)
	}
	for _, v := range values {
		if !q.HasOption(v) {
			return fmt.Errorf("%w: %q for %q", ErrUnknownOption, v, questionID)
		}
	}
	w.record(q, types.Multi(values...))
	return nil
}

// Skip marks an optional question as skipped. It never patches the spec.
func (w *Workspace) Skip(questionID string) error {
	q, err := w.question(questionID)
	if err != nil {
		return err
	}
	if q.Required {
		return fmt.Errorf("%w: %q", ErrSkipRequired, questionID)
	}
	w.answers[q.ID] = types.Skipped()
	return nil
}

// record stores the answer and applies its patches to the working spec.
// Patches are additive, so deselecting an option keeps what it added.
func (w *Workspace) record(q types.RefinementQuestion, a types.Answer) {
	w.answers[q.ID] = a
	for _, p := range w.table.Lookup(q.ID, a) {
		next, changed := apply(w.spec, p)
		if changed {
			w.spec = next
			w.changes = append(w.changes, p.Item)
		}
	}
}

func (w *Workspace) Questions() []types.RefinementQuestion {
	return types.CloneQuestions(w.questions)
}

func (w *Workspace) Answers() types.AnswerSet          { return w.answers.Clone() }
func (w *Workspace) Spec() types.ExpandedSpecification { return w.spec }

func (w *Workspace) IsAnswered(questionID string) bool {
	q, ok := w.byID[questionID]
	return ok && IsAnswered(q, w.answers)
}

func (w *Workspace) CanProceed() bool { return CanProceed(w.questions, w.answers) }

func (w *Workspace) Progress() (answered, total int) { return Progress(w.questions, w.answers) }

// Changes lists the items added to the spec so far, in order.
func (w *Workspace) Changes() []string { return append([]string(nil), w.changes...) }

// Warnings lists multi-choice answers with ManySelections or more values.
func (w *Workspace) Warnings() []Warning {
	var out []Warning
	for _, q := range w.questions {
		if q.Type != types.MultiChoice {
			continue
		}
		if n := len(w.answers[q.ID].Values()); n >= ManySelections {
			out = append(out, Warning{QuestionID: q.ID, Count: n})
		}
	}
	return out
}

// Outcome is the refinement phase payload.
func (w *Workspace) Outcome() types.RefinementOutcome {
	return types.RefinementOutcome{
		Spec:      w.spec,
		Questions: types.CloneQuestions(w.questions),
		Answers:   w.answers.Clone(),
	}
}
