package llmtool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapidproto/internal/types"
)

func TestRender_Sections(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose:     "Summarize the idea.",
		Background:  "Stage one.",
		Input:       map[string]any{"idea": "<b>x</b>"},
		Output:      sampleSchema,
		Constraints: []string{"No markdown."},
		Rules:       []string{"Be concise."},
		Assumptions: []string{"If unsure, leave lists empty."},
		Language:    "English",
		Examples:    []PromptExample{{InputJSON: `{"idea":"x"}`, OutputJSON: `{"title":"ok"}`}},
	}
	out, err := spec.Render()
	require.NoError(t, err)
	for _, sec := range []string{"[PURPOSE]", "[BACKGROUND]", "[INPUT]", "[OUTPUT]", "[CONSTRAINTS]", "[RULES]", "[ASSUMPTIONS]", "[OUTPUT_FORMAT]", "[LANGUAGE]", "[EXAMPLES]"} {
		assert.Contains(t, out, sec)
	}
	assert.Contains(t, out, "<b>x</b>", "input must not be HTML-escaped")
	assert.Contains(t, out, "- title (string, required): non-empty")
	assert.Contains(t, out, "```json\n{")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestRender_Deterministic(t *testing.T) {
	spec := StructuredPromptSpec{
		Purpose: "p",
		Input:   map[string]any{"b": 1, "a": []string{"x", "y"}, "c": map[string]int{"z": 1, "y": 2}},
		Output:  sampleSchema,
	}
	first, err := spec.Render()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := spec.Render()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRender_StringInputVerbatim(t *testing.T) {
	out, err := StructuredPromptSpec{Purpose: "p", Input: "raw \"text\"", Output: sampleSchema}.Render()
	require.NoError(t, err)
	assert.Contains(t, out, "[INPUT]\nraw \"text\"\n")
}

func TestRender_RequiresPurposeAndOutput(t *testing.T) {
	_, err := StructuredPromptSpec{Output: sampleSchema}.Render()
	assert.ErrorContains(t, err, "purpose")
	_, err = StructuredPromptSpec{Purpose: "x"}.Render()
	assert.ErrorContains(t, err, "output fields")
}

func TestApplyPresets_Prepends(t *testing.T) {
	spec := ApplyPresets(StructuredPromptSpec{Constraints: []string{"own"}}, PresetFencedJSON(types.LanguageEN), PresetNoInvent(types.LanguageEN))
	require.Len(t, spec.Constraints, 4)
	assert.Equal(t, "own", spec.Constraints[3])
	assert.Len(t, spec.Rules, 1)

	ja := PresetFencedJSON(types.LanguageJA)
	assert.Contains(t, ja.Constraints[0], "JSON")
	assert.NotEqual(t, ja.Constraints, PresetFencedJSON(types.LanguageEN).Constraints)
}
