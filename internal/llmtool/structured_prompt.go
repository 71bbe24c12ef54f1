package llmtool

import (
	"bytes"
	"fmt"
	"strings"

	"rapidproto/internal/util/jsonutil"
)

// PromptField describes a single output field in a simple schema.
type PromptField struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// PromptExample captures an optional input/output example.
type PromptExample struct {
	InputJSON  string
	OutputJSON string
}

// StructuredPromptSpec defines the sections for a structured prompt.
// Input may be a string (written as-is) or any JSON-encodable value.
type StructuredPromptSpec struct {
	Purpose      string
	Background   string
	Input        any
	Output       Schema
	Constraints  []string
	Rules        []string
	Assumptions  []string
	OutputFormat string
	Language     string
	Examples     []PromptExample
}

// Render produces the prompt text. The same spec always renders to the same
// bytes, so prompts can be snapshotted and diffed.
func (spec StructuredPromptSpec) Render() (string, error) {
	if strings.TrimSpace(spec.Purpose) == "" {
		return "", fmt.Errorf("llmtool: purpose is empty")
	}
	fields := spec.Output.PromptFields()
	if len(fields) == 0 {
		return "", fmt.Errorf("llmtool: output fields are empty")
	}
	input, err := formatInput(spec.Input)
	if err != nil {
		return "", fmt.Errorf("llmtool: encode input: %w", err)
	}
	outputFormat := spec.OutputFormat
	if strings.TrimSpace(outputFormat) == "" {
		outputFormat = "```json\n" + spec.Output.Skeleton() + "\n```"
	}

	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", spec.Purpose)
	writeSection(&buf, "BACKGROUND", spec.Background)
	writeSection(&buf, "INPUT", input)
	writeSection(&buf, "OUTPUT", formatFields(fields))
	writeSection(&buf, "CONSTRAINTS", formatList(spec.Constraints))
	writeSection(&buf, "RULES", formatList(spec.Rules))
	writeSection(&buf, "ASSUMPTIONS", formatList(spec.Assumptions))
	writeSection(&buf, "OUTPUT_FORMAT", outputFormat)
	writeSection(&buf, "LANGUAGE", spec.Language)
	if len(spec.Examples) > 0 {
		writeSection(&buf, "EXAMPLES", formatExamples(spec.Examples))
	}

	return strings.TrimSpace(buf.String()) + "\n", nil
}

func formatInput(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	}
	b, err := jsonutil.MarshalNoEscapeIndent(v, "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatFields(fields []PromptField) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", name, f.Type, req, f.Description)
		} else {
			fmt.Fprintf(&buf, "- %s (%s, %s)\n", name, f.Type, req)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatExamples(examples []PromptExample) string {
	var buf strings.Builder
	for i, ex := range examples {
		fmt.Fprintf(&buf, "Example %d:\n", i+1)
		if strings.TrimSpace(ex.InputJSON) != "" {
			buf.WriteString("INPUT:\n")
			buf.WriteString(strings.TrimRight(ex.InputJSON, "\n"))
			buf.WriteString("\n")
		}
		if strings.TrimSpace(ex.OutputJSON) != "" {
			buf.WriteString("OUTPUT:\n")
			buf.WriteString(strings.TrimRight(ex.OutputJSON, "\n"))
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
