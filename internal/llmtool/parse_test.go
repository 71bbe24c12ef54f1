package llmtool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

var sampleSchema = Object(
	Prop("title", String().Required()),
	Prop("tags", Array(String())),
)

func TestExtractJSON(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"fenced in prose": {"Here you go:\n```json\n{\"a\":1}\n```\nthanks", `{"a":1}`},
		"upper fence":     {"```JSON\n{\"a\":2}\n```", `{"a":2}`},
		"first fence":     {"```json\n{\"a\":1}\n```\n```json\n{\"a\":2}\n```", `{"a":1}`},
		"bare":            {"  {\"a\":3}\n", `{"a":3}`},
		"quoted document": {`"{\"a\":4}"`, `{"a":4}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestExtractJSON_Unparseable(t *testing.T) {
	for _, in := range []string{"", "   ", "I cannot help with that.", "```json\n{broken\n```", "{\"a\":"} {
		_, err := ExtractJSON(in)
		assert.ErrorIs(t, err, ErrResponseUnparseable, "input %q", in)
	}
}

func TestDecode(t *testing.T) {
	got, err := Decode[sample]("```json\n{\"title\":\"t\",\"tags\":[\"x\"]}\n```", sampleSchema)
	require.NoError(t, err)
	assert.Equal(t, sample{Title: "t", Tags: []string{"x"}}, got)
}

func TestDecode_SchemaMismatch(t *testing.T) {
	_, err := Decode[sample](`{"tags":["x"]}`, sampleSchema)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	assert.NotErrorIs(t, err, ErrResponseUnparseable)
}

func TestDecode_Unparseable(t *testing.T) {
	_, err := Decode[sample]("no json here", sampleSchema)
	assert.ErrorIs(t, err, ErrResponseUnparseable)
}
