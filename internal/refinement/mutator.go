// Package refinement applies user answers to a working specification and
// tracks which refinement questions have been answered.
package refinement

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"rapidproto/internal/types"
)

// Op names one additive transformation of the specification.
type Op string

const (
	OpAppendComponent       Op = "append_component"
	OpAppendDesignPrinciple Op = "append_design_principle"
	OpAppendInteraction     Op = "append_interaction"
	OpAppendPrimaryGoal     Op = "append_primary_goal"
	OpAppendFramework       Op = "append_framework"
)

// Patch maps one (question, answer value) pair onto an append.
type Patch struct {
	Question string `yaml:"question"`
	Value    string `yaml:"value"`
	Op       Op     `yaml:"op"`
	Item     string `yaml:"item"`
}

type patchKey struct{ question, value string }

// Table is the fixed lookup used by ApplyAnswer.
type Table struct {
	patches []Patch
	index   map[patchKey][]Patch
}

//go:embed patches.yaml
var defaultPatches []byte

var defaultTable = mustLoadTable(defaultPatches)

// LoadTable decodes a YAML patch table.
func LoadTable(data []byte) (*Table, error) {
	var doc struct {
		Patches []Patch `yaml:"patches"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("refinement: decode patches: %w", err)
	}
	t := &Table{patches: doc.Patches, index: make(map[patchKey][]Patch, len(doc.Patches))}
	for i, p := range doc.Patches {
		switch p.Op {
		case OpAppendComponent, OpAppendDesignPrinciple, OpAppendInteraction, OpAppendPrimaryGoal, OpAppendFramework:
		default:
			return nil, fmt.Errorf("refinement: patch %d: unknown op %q", i, p.Op)
		}
		if p.Question == "" || p.Value == "" || p.Item == "" {
			return nil, fmt.Errorf("refinement: patch %d: question, value and item are required", i)
		}
		k := patchKey{p.Question, p.Value}
		t.index[k] = append(t.index[k], p)
	}
	return t, nil
}

func mustLoadTable(data []byte) *Table {
	t, err := LoadTable(data)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTable returns the embedded patch table.
func DefaultTable() *Table { return defaultTable }

// Patches returns the table entries in file order.
func (t *Table) Patches() []Patch { return append([]Patch(nil), t.patches...) }

// Lookup returns the patches triggered by answer for questionID, in
// selection order. Skipped answers trigger nothing.
func (t *Table) Lookup(questionID string, answer types.Answer) []Patch {
	if answer.IsSkipped() {
		return nil
	}
	var out []Patch
	for _, v := range answer.Values() {
		out = append(out, t.index[patchKey{questionID, v}]...)
	}
	return out
}

// ApplyAnswer applies the default table. See Table.Apply. The result shares
// untouched slices with spec; Clone it before mutating in place.
func ApplyAnswer(spec types.ExpandedSpecification, questionID string, answer types.Answer) types.ExpandedSpecification {
	return defaultTable.Apply(spec, questionID, answer)
}

// Apply returns spec with the patches for (questionID, answer) applied.
// The input is never modified. Unknown pairs leave the result equal to the
// input and share its slices. Every append is membership-checked, so
// applying the same answer again changes nothing. Only the patched list is
// freshly allocated; callers that mutate in place must Clone first.
func (t *Table) Apply(spec types.ExpandedSpecification, questionID string, answer types.Answer) types.ExpandedSpecification {
	for _, p := range t.Lookup(questionID, answer) {
		spec, _ = apply(spec, p)
	}
	return spec
}

func apply(spec types.ExpandedSpecification, p Patch) (types.ExpandedSpecification, bool) {
	switch p.Op {
	case OpAppendComponent:
		if len(spec.UIRequirements.Pages) == 0 {
			return spec, false
		}
		page := spec.UIRequirements.Pages[0]
		comps, changed := appendUnique(page.KeyComponents, p.Item)
		if !changed {
			return spec, false
		}
		page.KeyComponents = comps
		return spec.WithPage(0, page)
	case OpAppendDesignPrinciple:
		if v, changed := appendUnique(spec.UIRequirements.DesignPrinciples, p.Item); changed {
			return spec.WithDesignPrinciples(v), true
		}
	case OpAppendInteraction:
		if v, changed := appendUnique(spec.UIRequirements.Interactions, p.Item); changed {
			return spec.WithInteractions(v), true
		}
	case OpAppendPrimaryGoal:
		if v, changed := appendUnique(spec.ProjectInfo.PrimaryGoals, p.Item); changed {
			return spec.WithPrimaryGoals(v), true
		}
	case OpAppendFramework:
		if v, changed := appendUnique(spec.TechnicalSpecs.Frameworks, p.Item); changed {
			return spec.WithFrameworks(v), true
		}
	}
	return spec, false
}

// appendUnique returns a fresh slice with item appended, or list itself and
// false when item is already present. It never writes into list's backing array.
func appendUnique(list []string, item string) ([]string, bool) {
	for _, it := range list {
		if it == item {
			return list, false
		}
	}
	out := make([]string, len(list), len(list)+1)
	copy(out, list)
	return append(out, item), true
}
