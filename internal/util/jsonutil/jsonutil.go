package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & into <, etc.
// Generated HTML travels through prompts verbatim this way.
func MarshalNoEscape(v any) ([]byte, error) {
	return encode(v, "")
}

// MarshalNoEscapeIndent is MarshalNoEscape with two-space style indentation.
func MarshalNoEscapeIndent(v any, indent string) ([]byte, error) {
	return encode(v, indent)
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode always terminates with a newline.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnescapeUnicodeString converts JSON unicode escapes like ">" into actual characters.
// Handles double-escaped sequences like "\\u003e" -> ">" -> ">".
func UnescapeUnicodeString(s string) (string, error) {
	if !strings.Contains(s, `\u`) {
		return s, nil
	}
	esc := strings.ReplaceAll(s, `\\`, `\`)
	esc = strings.ReplaceAll(esc, `"`, `\"`)
	var out string
	if err := json.Unmarshal([]byte(`"`+esc+`"`), &out); err != nil {
		return "", err
	}
	return out, nil
}

// NormalizeJSONUnicode parses JSON bytes and recursively unescapes any remaining
// double-escaped unicode sequences (e.g. "\\u003e") inside string values.
// A payload that is itself a quoted JSON document is unwrapped first.
func NormalizeJSONUnicode(raw []byte) ([]byte, error) {
	var anyVal any
	if err := json.Unmarshal(raw, &anyVal); err != nil {
		return nil, err
	}
	if s, ok := anyVal.(string); ok {
		if err := json.Unmarshal([]byte(s), &anyVal); err != nil {
			return nil, errors.New("jsonutil: cannot parse JSON payload")
		}
	}
	return MarshalNoEscape(deepUnescape(anyVal))
}

// UnmarshalFlex tries to unmarshal JSON bytes into v with best effort:
// 1) Direct unmarshal
// 2) Normalize and unmarshal
// Models occasionally return a JSON document wrapped in a string or with
// double-escaped unicode; both are recovered here.
func UnmarshalFlex(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	norm, nerr := NormalizeJSONUnicode(raw)
	if nerr != nil {
		return err
	}
	return json.Unmarshal(norm, v)
}

func deepUnescape(v any) any {
	switch x := v.(type) {
	case string:
		if s, err := UnescapeUnicodeString(x); err == nil {
			return s
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepUnescape(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepUnescape(vv)
		}
		return out
	default:
		return v
	}
}
