package generation

import (
	"context"

	"rapidproto/internal/llm"
	"rapidproto/internal/llmtool"
	"rapidproto/internal/types"
)

var refineSchema = llmtool.Object(
	llmtool.Prop("html", llmtool.String().Required().Describe("improved HTML")),
	llmtool.Prop("css", llmtool.String().Describe("improved CSS")),
	llmtool.Prop("javascript", llmtool.String().Describe("improved JavaScript")),
	llmtool.Prop("changes", llmtool.Array(llmtool.String()).Describe("changes made")),
)

type refineResponse struct {
	HTML       string   `json:"html"`
	CSS        string   `json:"css"`
	JavaScript string   `json:"javascript"`
	Changes    []string `json:"changes"`
}

type refineInput struct {
	Original types.GeneratedArtifact `json:"original"`
	Feedback string                  `json:"feedback"`
}

func RefinePrompt(a types.GeneratedArtifact, feedback string, lang types.Language) (llm.Request, error) {
	p := llmtool.StructuredPromptSpec{
		Purpose: pick(lang,
			"フィードバックに基づいて、プロトタイプを改善してください。",
			"Improve the prototype based on the feedback."),
		Input:  refineInput{Original: types.GeneratedArtifact{HTML: a.HTML, CSS: a.CSS, JavaScript: a.JavaScript}, Feedback: feedback},
		Output: refineSchema,
		Rules: picks(lang,
			[]string{"改善版は部分的な差分ではなく、完全なHTML・CSS・JavaScriptとして返してください。"},
			[]string{"Return the complete HTML, CSS and JavaScript, never a partial diff."}),
	}
	p = llmtool.ApplyPresets(p, llmtool.PresetAccessible(lang))
	return promptRequest(p, "", lang)
}

// RefineByFeedback regenerates the artifact as a whole replacement.
func (s *Service) RefineByFeedback(ctx context.Context, a types.GeneratedArtifact, feedback string) Result[types.FeedbackRevision] {
	lang := LanguageFrom(ctx)
	req, err := RefinePrompt(a, feedback, lang)
	return run(ctx, s, call[refineResponse, types.FeedbackRevision]{
		stage:    StageRefine,
		lang:     lang,
		req:      req,
		buildErr: err,
		schema:   refineSchema,
		convert: func(r refineResponse) (types.FeedbackRevision, error) {
			changes := r.Changes
			if changes == nil {
				changes = []string{}
			}
			return types.FeedbackRevision{
				Artifact: types.GeneratedArtifact{HTML: r.HTML, CSS: r.CSS, JavaScript: r.JavaScript, Assets: [][]byte{}},
				Changes:  changes,
			}, nil
		},
		fallback: func() types.FeedbackRevision { return FallbackRevision(a, lang) },
	})
}

// FallbackRevision keeps the original artifact and says so.
func FallbackRevision(a types.GeneratedArtifact, lang types.Language) types.FeedbackRevision {
	return types.FeedbackRevision{
		Artifact: a.Clone(),
		Changes:  []string{pick(lang, "フィードバックを反映できませんでした", "Feedback could not be applied")},
	}
}
