package generation

import (
	"context"

	"rapidproto/internal/llm"
	"rapidproto/internal/llmtool"
	"rapidproto/internal/types"
)

var levelSchema = llmtool.String().OneOf(string(types.LevelHigh), string(types.LevelMedium), string(types.LevelLow))

var qualitySchema = llmtool.Object(
	llmtool.Prop("qualityScores", llmtool.MapOf(llmtool.Number().Between(0, 100)).
		Describe("accessibility, responsiveness, codeQuality, designConsistency").Required()),
	llmtool.Prop("strengths", llmtool.Array(llmtool.String())),
	llmtool.Prop("improvements", llmtool.Array(llmtool.Object(
		llmtool.Prop("area", llmtool.String().Required()),
		llmtool.Prop("suggestion", llmtool.String().Required()),
		llmtool.Prop("priority", levelSchema),
	))),
	llmtool.Optional("accessibilityIssues", llmtool.Array(llmtool.String())),
	llmtool.Optional("performanceConsiderations", llmtool.Array(llmtool.String())),
)

type analyzeInput struct {
	Requirements types.ExpandedSpecification `json:"requirements"`
	HTML         string                      `json:"html"`
	CSS          string                      `json:"css"`
	JavaScript   string                      `json:"javascript"`
}

func AnalyzePrompt(a types.GeneratedArtifact, requirements types.ExpandedSpecification, lang types.Language) (llm.Request, error) {
	p := llmtool.StructuredPromptSpec{
		Purpose: pick(lang,
			"生成されたプロトタイプコードを分析し、品質評価とフィードバックを提供してください。",
			"Analyze the generated prototype code and report on its quality."),
		Input:  analyzeInput{Requirements: requirements, HTML: a.HTML, CSS: a.CSS, JavaScript: a.JavaScript},
		Output: qualitySchema,
		Rules: picks(lang,
			[]string{"スコアは0〜100の整数で評価してください。"},
			[]string{"Scores are integers from 0 to 100."}),
	}
	return promptRequest(p, "", lang)
}

// AnalyzePrototype scores an artifact against the requirements it was built from.
func (s *Service) AnalyzePrototype(ctx context.Context, a types.GeneratedArtifact, requirements types.ExpandedSpecification) Result[types.QualityReport] {
	lang := LanguageFrom(ctx)
	req, err := AnalyzePrompt(a, requirements, lang)
	return run(ctx, s, call[types.QualityReport, types.QualityReport]{
		stage:    StageAnalyze,
		lang:     lang,
		req:      req,
		buildErr: err,
		schema:   qualitySchema,
		convert: func(r types.QualityReport) (types.QualityReport, error) {
			return normalizeReport(r), nil
		},
		fallback: func() types.QualityReport { return FallbackQualityReport(lang) },
	})
}

func normalizeReport(r types.QualityReport) types.QualityReport {
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.Improvements == nil {
		r.Improvements = []types.Improvement{}
	}
	if r.AccessibilityIssues == nil {
		r.AccessibilityIssues = []string{}
	}
	if r.PerformanceConsiderations == nil {
		r.PerformanceConsiderations = []string{}
	}
	return r
}

// FallbackQualityReport returns fixed moderate scores and no improvements.
func FallbackQualityReport(lang types.Language) types.QualityReport {
	return types.QualityReport{
		QualityScores: map[string]float64{
			"accessibility":     80,
			"responsiveness":    85,
			"codeQuality":       75,
			"designConsistency": 80,
		},
		Strengths:                 []string{pick(lang, "基本的な構造が整っている", "The basic structure is in place")},
		Improvements:              []types.Improvement{},
		AccessibilityIssues:       []string{},
		PerformanceConsiderations: []string{},
	}
}

// Feedback analysis --------------------------------------------------------------

var feedbackSchema = llmtool.Object(
	llmtool.Prop("usabilityScore", llmtool.MapOf(llmtool.Number().Between(0, 1)).
		Describe("navigation, contentClarity, visualHierarchy as fractions").Required()),
	llmtool.Prop("commonRequests", llmtool.Array(llmtool.String())),
	llmtool.Prop("priorityImprovements", llmtool.Array(llmtool.Object(
		llmtool.Prop("area", llmtool.String().Required()),
		llmtool.Prop("impact", levelSchema),
		llmtool.Prop("effort", levelSchema),
		llmtool.Prop("suggestion", llmtool.String().Required()),
	))),
)

// Feedback is what the user submits in the last stage. Rating is 0-5.
type Feedback struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

type feedbackInput struct {
	Feedback   Feedback `json:"feedback"`
	HTML       string   `json:"html"`
	CSS        string   `json:"css"`
	JavaScript string   `json:"javascript"`
}

func FeedbackAnalysisPrompt(a types.GeneratedArtifact, fb Feedback, lang types.Language) (llm.Request, error) {
	p := llmtool.StructuredPromptSpec{
		Purpose: pick(lang,
			"ユーザーのフィードバックとプロトタイプを分析し、ユーザビリティ評価と優先すべき改善点をまとめてください。",
			"Analyze the user's feedback on the prototype and summarize usability and the improvements to prioritize."),
		Input:  feedbackInput{Feedback: fb, HTML: a.HTML, CSS: a.CSS, JavaScript: a.JavaScript},
		Output: feedbackSchema,
		Rules: picks(lang, []string{
			"usabilityScore は0〜1の小数で評価してください。",
			"改善点はインパクトが大きく工数が小さいものから並べてください。",
		}, []string{
			"usabilityScore values are fractions between 0 and 1.",
			"Order improvements by high impact and low effort first.",
		}),
	}
	return promptRequest(p, "", lang)
}

// AnalyzeFeedback summarizes the submitted feedback for the final report.
func (s *Service) AnalyzeFeedback(ctx context.Context, a types.GeneratedArtifact, fb Feedback) Result[types.FeedbackAnalysis] {
	lang := LanguageFrom(ctx)
	req, err := FeedbackAnalysisPrompt(a, fb, lang)
	return run(ctx, s, call[types.FeedbackAnalysis, types.FeedbackAnalysis]{
		stage:    StageFeedbackAnalysis,
		lang:     lang,
		req:      req,
		buildErr: err,
		schema:   feedbackSchema,
		convert: func(f types.FeedbackAnalysis) (types.FeedbackAnalysis, error) {
			if f.CommonRequests == nil {
				f.CommonRequests = []string{}
			}
			if f.PriorityImprovements == nil {
				f.PriorityImprovements = []types.PriorityImprovement{}
			}
			return f, nil
		},
		fallback: FallbackFeedbackAnalysis,
	})
}

func FallbackFeedbackAnalysis() types.FeedbackAnalysis {
	return types.FeedbackAnalysis{
		UsabilityScore: map[string]float64{
			"navigation":      0.85,
			"contentClarity":  0.92,
			"visualHierarchy": 0.78,
		},
		CommonRequests:       []string{},
		PriorityImprovements: []types.PriorityImprovement{},
	}
}
