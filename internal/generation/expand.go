package generation

import (
	"context"
	"strings"

	"rapidproto/internal/llm"
	"rapidproto/internal/llmtool"
	"rapidproto/internal/types"
)

var specSchema = llmtool.Object(
	llmtool.Prop("projectInfo", llmtool.Object(
		llmtool.Prop("title", llmtool.String().Required().Describe("project title")),
		llmtool.Prop("domain", llmtool.String().Required().Describe("education, e-commerce, entertainment, healthcare, business or other")),
		llmtool.Prop("targetUsers", llmtool.Array(llmtool.String()).Required()),
		llmtool.Prop("primaryGoals", llmtool.Array(llmtool.String()).Required()),
	)),
	llmtool.Prop("uiRequirements", llmtool.Object(
		llmtool.Prop("pages", llmtool.Array(llmtool.Object(
			llmtool.Prop("name", llmtool.String().Required()),
			llmtool.Prop("purpose", llmtool.String().Required()),
			llmtool.Prop("keyComponents", llmtool.Array(llmtool.String()).Required()),
		)).Required()),
		llmtool.Prop("designPrinciples", llmtool.Array(llmtool.String()).Required()),
		llmtool.Prop("interactions", llmtool.Array(llmtool.String()).Required()),
	)),
	llmtool.Prop("technicalSpecs", llmtool.Object(
		llmtool.Prop("responsive", llmtool.Bool()),
		llmtool.Prop("accessibility", llmtool.String().Required().Describe("accessibility standard")),
		llmtool.Prop("browserSupport", llmtool.Array(llmtool.String()).Required()),
		llmtool.Prop("frameworks", llmtool.Array(llmtool.String()).Required()),
	)),
)

// ExpandPrompt renders the expansion prompt for in. The language is taken
// from the input itself.
func ExpandPrompt(in types.IdeaInput) (llm.Request, error) {
	lang := in.Language.Normalize()
	unspecified := pick(lang, "指定なし", "not specified")
	input := strings.Join([]string{
		pick(lang, "ユーザーのアイデア:", "Idea:"),
		in.Idea,
		"",
		pick(lang, "ターゲットユーザー: ", "Target users: ") + orDefault(in.TargetUsers, unspecified),
		pick(lang, "制約条件: ", "Constraints: ") + orDefault(in.Constraints, unspecified),
	}, "\n")
	if len(in.ReferenceURLs) > 0 {
		input += "\n" + pick(lang, "参考URL: ", "References: ") + strings.Join(in.ReferenceURLs, ", ")
	}
	spec := llmtool.StructuredPromptSpec{
		Purpose: pick(lang,
			"ユーザーのアイデアを分析し、詳細な要件仕様に拡張してください。",
			"Analyze the user's idea and expand it into a detailed requirements specification."),
		Input:  input,
		Output: specSchema,
		Rules: picks(lang, []string{
			"ユーザーが明示的に述べていない重要な要素も推測して補完してください。",
			"業界のベストプラクティスを適用してください。",
			"モバイルファーストアプローチを考慮してください。",
			"アクセシビリティ要件（WCAG 2.1）を含めてください。",
		}, []string{
			"Infer important elements the user did not state explicitly.",
			"Apply industry best practices.",
			"Take a mobile-first approach.",
			"Include accessibility requirements (WCAG 2.1).",
		}),
	}
	spec = llmtool.ApplyPresets(spec, llmtool.PresetNoInvent(lang))
	return promptRequest(spec, pick(lang,
		"あなたは優秀なUIデザイナー兼開発者です。",
		"You are an expert UI designer and developer."), lang)
}

// Expand produces the expanded specification for in. It never fails; on any
// backend or parse problem the result is FallbackSpec(in).
func (s *Service) Expand(ctx context.Context, in types.IdeaInput) Result[types.ExpandedSpecification] {
	req, err := ExpandPrompt(in)
	return run(ctx, s, call[types.ExpandedSpecification, types.ExpandedSpecification]{
		stage:    StageExpand,
		lang:     in.Language.Normalize(),
		req:      req,
		buildErr: err,
		schema:   specSchema,
		convert: func(spec types.ExpandedSpecification) (types.ExpandedSpecification, error) {
			return spec, spec.Validate()
		},
		fallback: func() types.ExpandedSpecification { return FallbackSpec(in) },
	})
}

const fallbackTitleRunes = 50

// FallbackSpec is the canonical expansion substitute derived from the idea.
func FallbackSpec(in types.IdeaInput) types.ExpandedSpecification {
	lang := in.Language.Normalize()
	title := []rune(in.Idea)
	if len(title) > fallbackTitleRunes {
		title = title[:fallbackTitleRunes]
	}
	users := splitUsers(in.TargetUsers)
	if len(users) == 0 {
		users = []string{pick(lang, "一般ユーザー", "General users")}
	}
	return types.ExpandedSpecification{
		ProjectInfo: types.ProjectInfo{
			Title:        string(title) + "...",
			Domain:       pick(lang, "一般", "general"),
			TargetUsers:  users,
			PrimaryGoals: picks(lang, []string{"ユーザビリティ向上", "効率化"}, []string{"Better usability", "Efficiency"}),
		},
		UIRequirements: types.UIRequirements{
			Pages: []types.Page{{
				Name:          pick(lang, "メインページ", "Main page"),
				Purpose:       pick(lang, "主要機能の提供", "Provide the core features"),
				KeyComponents: picks(lang, []string{"ヘッダー", "メインコンテンツ", "フッター"}, []string{"Header", "Main content", "Footer"}),
			}},
			DesignPrinciples: picks(lang, []string{"シンプル", "直感的", "レスポンシブ"}, []string{"Simple", "Intuitive", "Responsive"}),
			Interactions:     picks(lang, []string{"クリック", "スクロール"}, []string{"Click", "Scroll"}),
		},
		TechnicalSpecs: types.TechnicalSpecs{
			Responsive:     true,
			Accessibility:  pick(lang, "WCAG 2.1 AA準拠", "WCAG 2.1 AA compliant"),
			BrowserSupport: []string{"Chrome", "Safari", "Firefox", "Edge"},
			Frameworks:     []string{"HTML5", "CSS3", "JavaScript ES6+"},
		},
	}
}

func splitUsers(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '、' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
