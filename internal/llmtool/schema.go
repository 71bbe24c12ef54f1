package llmtool

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSchemaMismatch reports well-formed JSON that does not have the expected shape.
var ErrSchemaMismatch = errors.New("llmtool: schema mismatch")

type Kind int

const (
	KindAny Kind = iota
	KindObject
	KindArray
	KindString
	KindBool
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	default:
		return "any"
	}
}

// Schema describes the JSON shape a stage expects. It is rendered into the
// prompt and later used to validate the parsed response.
type Schema struct {
	Kind        Kind
	Fields      []Field // KindObject
	Elem        *Schema // KindArray
	Values      *Schema // KindObject with free-form keys (a map)
	NonEmpty    bool    // arrays need an element, strings need a non-blank value
	Enum        []string
	Min, Max    *float64
	Description string
}

type Field struct {
	Name     string
	Schema   Schema
	Required bool
}

func Object(fields ...Field) Schema { return Schema{Kind: KindObject, Fields: fields} }

// MapOf is an object whose keys are free-form and whose values share one schema.
func MapOf(values Schema) Schema { return Schema{Kind: KindObject, Values: &values} }

func Array(elem Schema) Schema { return Schema{Kind: KindArray, Elem: &elem} }
func String() Schema           { return Schema{Kind: KindString} }
func Bool() Schema             { return Schema{Kind: KindBool} }
func Number() Schema           { return Schema{Kind: KindNumber} }

// Prop is a required field.
func Prop(name string, s Schema) Field { return Field{Name: name, Schema: s, Required: true} }

// Optional is a field that may be absent.
func Optional(name string, s Schema) Field { return Field{Name: name, Schema: s} }

func (s Schema) Describe(d string) Schema { s.Description = d; return s }
func (s Schema) Required() Schema         { s.NonEmpty = true; return s }
func (s Schema) OneOf(vals ...string) Schema {
	s.Enum = append([]string(nil), vals...)
	return s
}
func (s Schema) Between(lo, hi float64) Schema {
	s.Min, s.Max = &lo, &hi
	return s
}

// Validate checks a decoded JSON value (as produced by encoding/json into
// any) against the schema. The error wraps ErrSchemaMismatch and names the
// first offending path.
func (s Schema) Validate(v any) error {
	return s.validate("$", v)
}

func (s Schema) validate(path string, v any) error {
	mismatch := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrSchemaMismatch, path, fmt.Sprintf(format, args...))
	}
	switch s.Kind {
	case KindAny:
		return nil
	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return mismatch("expected object, got %s", jsonKind(v))
		}
		for _, f := range s.Fields {
			child, present := obj[f.Name]
			if !present || child == nil {
				if f.Required {
					return fmt.Errorf("%w: %s.%s: required field missing", ErrSchemaMismatch, path, f.Name)
				}
				continue
			}
			if err := f.Schema.validate(path+"."+f.Name, child); err != nil {
				return err
			}
		}
		if s.Values != nil {
			for k, child := range obj {
				if err := s.Values.validate(path+"."+k, child); err != nil {
					return err
				}
			}
		}
		if s.NonEmpty && len(obj) == 0 {
			return mismatch("expected non-empty object")
		}
	case KindArray:
		arr, ok := v.([]any)
		if !ok {
			return mismatch("expected array, got %s", jsonKind(v))
		}
		if s.NonEmpty && len(arr) == 0 {
			return mismatch("expected non-empty array")
		}
		if s.Elem != nil {
			for i, el := range arr {
				if err := s.Elem.validate(path+"["+strconv.Itoa(i)+"]", el); err != nil {
					return err
				}
			}
		}
	case KindString:
		str, ok := v.(string)
		if !ok {
			return mismatch("expected string, got %s", jsonKind(v))
		}
		if s.NonEmpty && strings.TrimSpace(str) == "" {
			return mismatch("expected non-empty string")
		}
		if len(s.Enum) > 0 && !contains(s.Enum, str) {
			return mismatch("value %q not in %v", str, s.Enum)
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return mismatch("expected boolean, got %s", jsonKind(v))
		}
	case KindNumber:
		n, ok := v.(float64)
		if !ok {
			return mismatch("expected number, got %s", jsonKind(v))
		}
		if s.Min != nil && n < *s.Min {
			return mismatch("%v below minimum %v", n, *s.Min)
		}
		if s.Max != nil && n > *s.Max {
			return mismatch("%v above maximum %v", n, *s.Max)
		}
	}
	return nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func contains(list []string, s string) bool {
	for _, it := range list {
		if it == s {
			return true
		}
	}
	return false
}

// PromptFields flattens the schema into dotted prompt fields, e.g.
// "projectInfo.title (string, required)". Array elements use "[]".
func (s Schema) PromptFields() []PromptField {
	var out []PromptField
	s.collect("", true, &out)
	return out
}

func (s Schema) collect(prefix string, required bool, out *[]PromptField) {
	if prefix != "" {
		*out = append(*out, PromptField{
			Name:        prefix,
			Type:        s.typeLabel(),
			Required:    required,
			Description: s.describe(),
		})
	}
	switch s.Kind {
	case KindObject:
		for _, f := range s.Fields {
			name := f.Name
			if prefix != "" {
				name = prefix + "." + f.Name
			}
			f.Schema.collect(name, f.Required, out)
		}
	case KindArray:
		if s.Elem != nil && s.Elem.Kind == KindObject {
			name := "[]"
			if prefix != "" {
				name = prefix + "[]"
			}
			for _, f := range s.Elem.Fields {
				f.Schema.collect(name+"."+f.Name, f.Required, out)
			}
		}
	}
}

func (s Schema) typeLabel() string {
	switch s.Kind {
	case KindArray:
		if s.Elem == nil {
			return "array"
		}
		return "[]" + s.Elem.typeLabel()
	case KindObject:
		if s.Values != nil {
			return "map[string]" + s.Values.typeLabel()
		}
		return "object"
	default:
		return s.Kind.String()
	}
}

func (s Schema) describe() string {
	var parts []string
	if s.Description != "" {
		parts = append(parts, s.Description)
	}
	if len(s.Enum) > 0 {
		parts = append(parts, "one of: "+strings.Join(s.Enum, " | "))
	}
	if s.Min != nil && s.Max != nil {
		parts = append(parts, fmt.Sprintf("range %v-%v", *s.Min, *s.Max))
	}
	if s.NonEmpty {
		parts = append(parts, "non-empty")
	}
	return strings.Join(parts, "; ")
}

// Skeleton renders an example JSON document of the schema's shape, used in
// the prompt's OUTPUT_FORMAT section.
func (s Schema) Skeleton() string {
	var b strings.Builder
	s.skeleton(&b, 0)
	return b.String()
}

func (s Schema) skeleton(b *strings.Builder, depth int) {
	pad := strings.Repeat("  ", depth)
	switch s.Kind {
	case KindObject:
		if s.Values != nil {
			b.WriteString("{\n" + pad + "  \"<key>\": ")
			s.Values.skeleton(b, depth+1)
			b.WriteString("\n" + pad + "}")
			return
		}
		b.WriteString("{\n")
		for i, f := range s.Fields {
			b.WriteString(pad + "  " + strconv.Quote(f.Name) + ": ")
			f.Schema.skeleton(b, depth+1)
			if i < len(s.Fields)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(pad + "}")
	case KindArray:
		if s.Elem == nil {
			b.WriteString("[]")
			return
		}
		if s.Elem.Kind == KindObject {
			b.WriteString("[\n" + pad + "  ")
			s.Elem.skeleton(b, depth+1)
			b.WriteString("\n" + pad + "]")
			return
		}
		b.WriteString("[")
		s.Elem.skeleton(b, depth+1)
		b.WriteString("]")
	case KindString:
		switch {
		case len(s.Enum) > 0:
			b.WriteString(strconv.Quote(strings.Join(s.Enum, "/")))
		case s.Description != "":
			b.WriteString(strconv.Quote(s.Description))
		default:
			b.WriteString(`"string"`)
		}
	case KindBool:
		b.WriteString("true")
	case KindNumber:
		if s.Min != nil {
			fmt.Fprintf(b, "%v", *s.Min)
			return
		}
		b.WriteString("0")
	default:
		b.WriteString("null")
	}
}
