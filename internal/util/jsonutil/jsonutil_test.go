package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNoEscape_KeepsHTML(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"html": "<p>a & b</p>"})
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<p>a & b</p>"}`, string(out))
}

func TestMarshalNoEscapeIndent(t *testing.T) {
	out, err := MarshalNoEscapeIndent(map[string]any{"a": []int{1}}, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    1\n  ]\n}", string(out))
}

func TestUnmarshalFlex_QuotedDocument(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}
	require.NoError(t, UnmarshalFlex([]byte(`"{\"title\":\"x\"}"`), &v))
	assert.Equal(t, "x", v.Title)
}

func TestUnmarshalFlex_DoubleEscapedUnicode(t *testing.T) {
	var v struct {
		HTML string `json:"html"`
	}
	require.NoError(t, UnmarshalFlex([]byte(`{"html":"\\u003cdiv\\u003e"}`), &v))
	assert.Equal(t, `\u003cdiv\u003e`, v.HTML, "direct decode succeeds and keeps the literal")

	norm, err := NormalizeJSONUnicode([]byte(`{"html":"\\u003cdiv\\u003e"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<div>"}`, string(norm))
}

func TestUnmarshalFlex_Invalid(t *testing.T) {
	var v map[string]any
	assert.Error(t, UnmarshalFlex([]byte(`{not json`), &v))
}
