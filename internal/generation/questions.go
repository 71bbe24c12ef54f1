package generation

import (
	"context"
	"fmt"

	"rapidproto/internal/llm"
	"rapidproto/internal/llmtool"
	"rapidproto/internal/types"
)

var questionsSchema = llmtool.Array(llmtool.Object(
	llmtool.Prop("id", llmtool.String().Required()),
	llmtool.Prop("question", llmtool.String().Required()),
	llmtool.Prop("type", llmtool.String().OneOf(string(types.SingleChoice), string(types.MultiChoice))),
	llmtool.Prop("options", llmtool.Array(llmtool.Object(
		llmtool.Prop("id", llmtool.String().Required()),
		llmtool.Prop("label", llmtool.String().Required()),
		llmtool.Prop("value", llmtool.String().Required()),
	)).Required()),
	llmtool.Prop("priority", llmtool.String().OneOf(string(types.LevelHigh), string(types.LevelMedium), string(types.LevelLow))),
	llmtool.Prop("required", llmtool.Bool()),
	llmtool.Optional("impact", llmtool.String().Describe("which part of the specification the answer affects")),
)).Required()

func QuestionsPrompt(spec types.ExpandedSpecification, lang types.Language) (llm.Request, error) {
	p := llmtool.StructuredPromptSpec{
		Purpose: pick(lang,
			"拡張された要件仕様を分析し、ユーザーに確認すべき重要な質問を生成してください。",
			"Analyze the expanded specification and write the key questions to confirm with the user."),
		Input:  spec,
		Output: questionsSchema,
		Rules: picks(lang, []string{
			"曖昧な部分や複数の解釈が可能な部分を明確化する質問にしてください。",
			"ユーザーの優先順位を確認する質問を含めてください。",
			"技術的な選択肢に関する質問を含めてください。",
			"質問は5〜8個程度に絞り、優先度の高いものから並べてください。",
			"id は q1, q2, ... の形式で一意にしてください。",
		}, []string{
			"Clarify parts that are ambiguous or open to several interpretations.",
			"Include questions that confirm the user's priorities.",
			"Include questions about technical choices.",
			"Keep it to about 5-8 questions, highest priority first.",
			"Use unique ids of the form q1, q2, ...",
		}),
	}
	return promptRequest(p, "", lang)
}

// GenerateQuestions produces the session's question set from spec.
func (s *Service) GenerateQuestions(ctx context.Context, spec types.ExpandedSpecification) Result[[]types.RefinementQuestion] {
	lang := LanguageFrom(ctx)
	req, err := QuestionsPrompt(spec, lang)
	return run(ctx, s, call[[]types.RefinementQuestion, []types.RefinementQuestion]{
		stage:    StageQuestions,
		lang:     lang,
		req:      req,
		buildErr: err,
		schema:   questionsSchema,
		convert:  checkQuestions,
		fallback: func() []types.RefinementQuestion { return FallbackQuestions(lang) },
	})
}

// checkQuestions enforces what the schema cannot express: unique question
// ids and unique option values per question.
func checkQuestions(qs []types.RefinementQuestion) ([]types.RefinementQuestion, error) {
	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = true
		values := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if values[o.Value] {
				return nil, fmt.Errorf("question %q: duplicate option value %q", q.ID, o.Value)
			}
			values[o.Value] = true
		}
	}
	return qs, nil
}

// FallbackQuestions is the single generic question used when generation fails.
func FallbackQuestions(lang types.Language) []types.RefinementQuestion {
	return []types.RefinementQuestion{{
		ID:       "q1",
		Question: pick(lang, "最も重要な機能は何ですか？", "Which feature matters most?"),
		Type:     types.SingleChoice,
		Options: []types.QuestionOption{
			{ID: "opt1", Label: pick(lang, "基本機能A", "Core feature A"), Value: "feature_a"},
			{ID: "opt2", Label: pick(lang, "基本機能B", "Core feature B"), Value: "feature_b"},
			{ID: "opt3", Label: pick(lang, "基本機能C", "Core feature C"), Value: "feature_c"},
		},
		Priority: types.LevelHigh,
		Required: true,
	}}
}
