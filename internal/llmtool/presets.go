package llmtool

import "rapidproto/internal/types"

// PromptPreset holds reusable constraints and rules for structured prompts.
type PromptPreset struct {
	Constraints []string
	Rules       []string
}

// ApplyPresets prepends preset constraints/rules to a structured prompt spec.
func ApplyPresets(spec StructuredPromptSpec, presets ...PromptPreset) StructuredPromptSpec {
	if len(presets) == 0 {
		return spec
	}
	var merged PromptPreset
	for _, p := range presets {
		merged.Constraints = append(merged.Constraints, p.Constraints...)
		merged.Rules = append(merged.Rules, p.Rules...)
	}
	spec.Constraints = append(merged.Constraints, spec.Constraints...)
	spec.Rules = append(merged.Rules, spec.Rules...)
	return spec
}

// PresetFencedJSON asks for a single fenced ```json block.
func PresetFencedJSON(lang types.Language) PromptPreset {
	if lang.Normalize() == types.LanguageEN {
		return PromptPreset{Constraints: []string{
			"Respond with exactly one ```json fenced block.",
			"Match the output schema exactly; no extra fields.",
			"No comments or trailing commas inside the JSON.",
		}}
	}
	return PromptPreset{Constraints: []string{
		"回答は ```json で囲んだJSONブロックを1つだけ返してください。",
		"出力スキーマに厳密に従い、余分なフィールドを含めないでください。",
		"JSON内にコメントや末尾カンマを含めないでください。",
	}}
}

// PresetAccessible keeps generated UI within accessibility norms.
func PresetAccessible(lang types.Language) PromptPreset {
	if lang.Normalize() == types.LanguageEN {
		return PromptPreset{Rules: []string{
			"Follow WCAG 2.1 AA: semantic elements, labels, sufficient contrast.",
			"Layouts must be responsive down to 320px wide.",
		}}
	}
	return PromptPreset{Rules: []string{
		"WCAG 2.1 AA に準拠すること（セマンティックな要素、ラベル、十分なコントラスト）。",
		"幅320pxまでレスポンシブに対応すること。",
	}}
}

// PresetNoInvent keeps the model inside the provided material.
func PresetNoInvent(lang types.Language) PromptPreset {
	if lang.Normalize() == types.LanguageEN {
		return PromptPreset{Rules: []string{
			"Do not invent requirements that contradict the input; infer only what the idea implies.",
		}}
	}
	return PromptPreset{Rules: []string{
		"入力と矛盾する要件を作らず、アイデアから推測できる範囲で補ってください。",
	}}
}

// LanguageName is the human label written into the LANGUAGE section.
func LanguageName(lang types.Language) string {
	if lang.Normalize() == types.LanguageEN {
		return "English"
	}
	return "Japanese (日本語で回答してください)"
}
