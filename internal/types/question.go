package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Refinement -----------------------------------------------------------------------

type QuestionType string

const (
	SingleChoice QuestionType = "single-choice"
	MultiChoice  QuestionType = "multi-choice"
)

func (t QuestionType) Valid() bool { return t == SingleChoice || t == MultiChoice }

type QuestionOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// RefinementQuestion is generated once per session; the set never changes
// while answers are collected.
type RefinementQuestion struct {
	ID       string           `json:"id"`
	Question string           `json:"question"`
	Type     QuestionType     `json:"type"`
	Options  []QuestionOption `json:"options"`
	Priority Level            `json:"priority"`
	Required bool             `json:"required"`
	Impact   string           `json:"impact,omitempty"`
}

// HasOption reports whether value is one of the question's option values.
func (q RefinementQuestion) HasOption(value string) bool {
	for _, o := range q.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}

func CloneQuestions(in []RefinementQuestion) []RefinementQuestion {
	if in == nil {
		return nil
	}
	out := make([]RefinementQuestion, len(in))
	for i, q := range in {
		q.Options = append([]QuestionOption(nil), q.Options...)
		out[i] = q
	}
	return out
}

// SkippedValue is the wire form of a skipped answer.
const SkippedValue = "skipped"

// Answer is a single value, an ordered selection (multi-choice), or the
// skipped sentinel. It encodes as a JSON string, array, or "skipped".
type Answer struct {
	values  []string
	multi   bool
	skipped bool
}

func Single(v string) Answer { return Answer{values: []string{v}} }

func Multi(vs ...string) Answer {
	return Answer{values: append([]string{}, vs...), multi: true}
}

func Skipped() Answer { return Answer{skipped: true} }

func (a Answer) IsSkipped() bool { return a.skipped }
func (a Answer) IsMulti() bool   { return a.multi }

// Value returns the single value, or "" for multi-choice and skipped answers.
func (a Answer) Value() string {
	if a.skipped || a.multi || len(a.values) == 0 {
		return ""
	}
	return a.values[0]
}

// Values returns a copy of the selected values. A single answer yields one
// element; a skipped answer yields none.
func (a Answer) Values() []string {
	if a.skipped {
		return nil
	}
	return append([]string(nil), a.values...)
}

func (a Answer) Equal(b Answer) bool {
	if a.skipped != b.skipped || a.multi != b.multi || len(a.values) != len(b.values) {
		return false
	}
	for i := range a.values {
		if a.values[i] != b.values[i] {
			return false
		}
	}
	return true
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch {
	case a.skipped:
		return json.Marshal(SkippedValue)
	case a.multi:
		vs := a.values
		if vs == nil {
			vs = []string{}
		}
		return json.Marshal(vs)
	default:
		return json.Marshal(a.Value())
	}
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var vs []string
		if err := json.Unmarshal(b, &vs); err != nil {
			return fmt.Errorf("answer: %w", err)
		}
		*a = Multi(vs...)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("answer: %w", err)
	}
	if s == SkippedValue {
		*a = Skipped()
		return nil
	}
	*a = Single(s)
	return nil
}

// AnswerSet maps question id to its answer. Keys are only ever added.
type AnswerSet map[string]Answer

func (s AnswerSet) Clone() AnswerSet {
	if s == nil {
		return nil
	}
	out := make(AnswerSet, len(s))
	for k, v := range s {
		v.values = append([]string(nil), v.values...)
		out[k] = v
	}
	return out
}
