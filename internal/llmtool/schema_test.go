package llmtool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Object(
	Prop("title", String().Required()),
	Prop("tags", Array(String()).Required()),
	Prop("score", Number().Between(0, 100)),
	Optional("level", String().OneOf("high", "low")),
	Prop("items", Array(Object(
		Prop("name", String()),
		Prop("ok", Bool()),
	))),
)

func decodeAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestSchemaValidate_Accepts(t *testing.T) {
	v := decodeAny(t, `{"title":"x","tags":["a"],"score":50,"items":[{"name":"n","ok":true}],"extra":1}`)
	assert.NoError(t, testSchema.Validate(v))
}

func TestSchemaValidate_Rejects(t *testing.T) {
	cases := map[string]struct {
		doc  string
		path string
	}{
		"missing field":   {`{"tags":["a"],"score":1,"items":[]}`, "$.title"},
		"blank string":    {`{"title":"  ","tags":["a"],"score":1,"items":[]}`, "$.title"},
		"empty array":     {`{"title":"x","tags":[],"score":1,"items":[]}`, "$.tags"},
		"wrong type":      {`{"title":"x","tags":"a","score":1,"items":[]}`, "$.tags"},
		"out of range":    {`{"title":"x","tags":["a"],"score":101,"items":[]}`, "$.score"},
		"bad enum":        {`{"title":"x","tags":["a"],"score":1,"level":"mid","items":[]}`, "$.level"},
		"nested mismatch": {`{"title":"x","tags":["a"],"score":1,"items":[{"name":"n","ok":"yes"}]}`, "$.items[0].ok"},
		"null required":   {`{"title":null,"tags":["a"],"score":1,"items":[]}`, "$.title"},
		"not an object":   {`[1,2]`, "$"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := testSchema.Validate(decodeAny(t, tc.doc))
			require.ErrorIs(t, err, ErrSchemaMismatch)
			assert.Contains(t, err.Error(), tc.path)
		})
	}
}

func TestSchemaMapOf(t *testing.T) {
	s := MapOf(Number().Between(0, 1))
	assert.NoError(t, s.Validate(decodeAny(t, `{"a":0.5,"b":1}`)))
	assert.ErrorIs(t, s.Validate(decodeAny(t, `{"a":2}`)), ErrSchemaMismatch)
}

func TestSchemaPromptFields(t *testing.T) {
	fields := testSchema.PromptFields()
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"title", "tags", "score", "level", "items", "items[].name", "items[].ok"}, names)
	assert.Equal(t, "[]string", fields[1].Type)
	assert.False(t, fields[3].Required)
	assert.Contains(t, fields[3].Description, "high | low")
}

func TestSchemaSkeletonIsValidShape(t *testing.T) {
	sk := Object(
		Prop("name", String()),
		Prop("list", Array(String())),
		Prop("pages", Array(Object(Prop("id", String())))),
	).Skeleton()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(sk), &v))
	assert.Contains(t, v, "pages")
}
