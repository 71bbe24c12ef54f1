package llmtool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"rapidproto/internal/util/jsonutil"
)

// ErrResponseUnparseable reports model text that holds no parseable JSON.
var ErrResponseUnparseable = errors.New("llmtool: response unparseable")

var reFencedJSON = regexp.MustCompile("(?is)```json[ \\t]*\\r?\\n?(.*?)\\r?\\n?```")

// ExtractJSON locates the JSON payload in raw model text: the first fenced
// ```json block when present, otherwise the whole text.
func ExtractJSON(text string) ([]byte, error) {
	payload := strings.TrimSpace(text)
	if m := reFencedJSON.FindStringSubmatch(text); m != nil {
		payload = strings.TrimSpace(m[1])
	}
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrResponseUnparseable)
	}
	raw := []byte(payload)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: %s", ErrResponseUnparseable, preview(payload))
	}
	// A document wrapped in a JSON string is still recoverable.
	if raw[0] == '"' {
		norm, err := jsonutil.NormalizeJSONUnicode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResponseUnparseable, err)
		}
		return norm, nil
	}
	return raw, nil
}

// Decode runs extract → validate → unmarshal for one stage's response.
func Decode[T any](text string, schema Schema) (T, error) {
	var zero T
	raw, err := ExtractJSON(text)
	if err != nil {
		return zero, err
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&generic); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrResponseUnparseable, err)
	}
	if err := schema.Validate(generic); err != nil {
		return zero, err
	}
	var out T
	if err := jsonutil.UnmarshalFlex(raw, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return out, nil
}

func preview(s string) string {
	const max = 80
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
