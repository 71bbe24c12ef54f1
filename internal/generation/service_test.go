package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapidproto/internal/llm"
	"rapidproto/internal/types"
)

// stubClient answers every request with the same text or error.
type stubClient struct {
	text  string
	err   error
	calls atomic.Int64

	mu     sync.Mutex
	stages []string
	last   llm.Request
}

func (s *stubClient) Name() string { return "stub" }
func (s *stubClient) Close() error { return nil }
func (s *stubClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.stages = append(s.stages, llm.StageFrom(ctx))
	s.last = req
	s.mu.Unlock()
	return s.text, s.err
}

type recordingReporter struct {
	mu      sync.Mutex
	notices []Notice
	errs    []error
}

func (r *recordingReporter) Report(_ context.Context, n Notice, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	r.errs = append(r.errs, err)
}

var learningIdea = types.IdeaInput{
	Idea:        "オンライン学習プラットフォームのダッシュボードを作りたい。学習進捗、課題提出、成績確認ができるもの。",
	TargetUsers: "大学生",
	Constraints: "スマホでも使いやすくしたい",
	Language:    types.LanguageJA,
}

func TestExpand_UnparseableResponseYieldsDocumentedFallback(t *testing.T) {
	rep := &recordingReporter{}
	svc := New(&stubClient{text: "申し訳ありませんが、今回はうまく生成できませんでした。"}, WithReporter(rep))

	res := svc.Expand(context.Background(), learningIdea)

	require.True(t, res.Fallback)
	require.NotNil(t, res.Notice)
	assert.Equal(t, KindResponseUnparseable, res.Notice.Kind)
	assert.True(t, res.Notice.Retryable)

	want := types.ExpandedSpecification{
		ProjectInfo: types.ProjectInfo{
			Title:        "オンライン学習プラットフォームのダッシュボードを作りたい。学習進捗、課題提出、成績確認ができるもの。...",
			Domain:       "一般",
			TargetUsers:  []string{"大学生"},
			PrimaryGoals: []string{"ユーザビリティ向上", "効率化"},
		},
		UIRequirements: types.UIRequirements{
			Pages: []types.Page{{
				Name:          "メインページ",
				Purpose:       "主要機能の提供",
				KeyComponents: []string{"ヘッダー", "メインコンテンツ", "フッター"},
			}},
			DesignPrinciples: []string{"シンプル", "直感的", "レスポンシブ"},
			Interactions:     []string{"クリック", "スクロール"},
		},
		TechnicalSpecs: types.TechnicalSpecs{
			Responsive:     true,
			Accessibility:  "WCAG 2.1 AA準拠",
			BrowserSupport: []string{"Chrome", "Safari", "Firefox", "Edge"},
			Frameworks:     []string{"HTML5", "CSS3", "JavaScript ES6+"},
		},
	}
	if diff := cmp.Diff(want, res.Value); diff != "" {
		t.Fatalf("fallback mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, rep.notices, 1)
	assert.Equal(t, StageExpand, rep.notices[0].Stage)
}

func TestExpand_ModelResponse(t *testing.T) {
	fake := llm.NewFakeClient()
	res := New(fake).Expand(context.Background(), learningIdea)

	require.False(t, res.Fallback)
	assert.Nil(t, res.Notice)
	assert.Equal(t, "教育", res.Value.ProjectInfo.Domain)
	assert.Len(t, res.Value.UIRequirements.Pages, 2)
	assert.NoError(t, res.Value.Validate())
	assert.EqualValues(t, 1, fake.Calls())
}

func TestExpand_LongIdeaTruncatedToFiftyRunes(t *testing.T) {
	in := types.IdeaInput{Idea: "あいうえおかきくけこさしすせそたちつてとなにぬねのはひふへほまみむめもやゆよらりるれろわをんアイウエオカキクケコ", TargetUsers: "学生, 教員、 ,保護者"}
	spec := FallbackSpec(in)
	assert.Equal(t, 53, len([]rune(spec.ProjectInfo.Title)))
	assert.Equal(t, []string{"学生", "教員", "保護者"}, spec.ProjectInfo.TargetUsers)
}

func TestFallbackSpec_English(t *testing.T) {
	spec := FallbackSpec(types.IdeaInput{Idea: "A tiny app to track my reading habits", Language: types.LanguageEN})
	assert.Equal(t, "general", spec.ProjectInfo.Domain)
	assert.Equal(t, []string{"General users"}, spec.ProjectInfo.TargetUsers)
	assert.Equal(t, "A tiny app to track my reading habits...", spec.ProjectInfo.Title)
	assert.NoError(t, spec.Validate())
}

func TestStages_NetworkFailureYieldsExactFallback(t *testing.T) {
	ctx := WithLanguage(context.Background(), types.LanguageJA)
	client := &stubClient{err: fmt.Errorf("%w: connection refused", llm.ErrModelUnavailable)}
	svc := New(client)
	spec := FallbackSpec(learningIdea)
	artifact := types.GeneratedArtifact{HTML: "<p>x</p>", CSS: "p{}", JavaScript: "1", Assets: [][]byte{[]byte("a")}}

	expand := svc.Expand(ctx, learningIdea)
	assert.True(t, expand.Fallback)
	assert.Equal(t, FallbackSpec(learningIdea), expand.Value)

	qs := svc.GenerateQuestions(ctx, spec)
	assert.True(t, qs.Fallback)
	assert.Equal(t, FallbackQuestions(types.LanguageJA), qs.Value)
	require.Len(t, qs.Value, 1)
	assert.True(t, qs.Value[0].Required)
	assert.Equal(t, types.LevelHigh, qs.Value[0].Priority)
	assert.Equal(t, types.SingleChoice, qs.Value[0].Type)
	assert.Len(t, qs.Value[0].Options, 3)

	proto := svc.GeneratePrototype(ctx, spec)
	assert.True(t, proto.Fallback)
	assert.Equal(t, FallbackArtifact(spec, types.LanguageJA), proto.Value)
	assert.Equal(t, "console.log('Prototype loaded');", proto.Value.JavaScript)

	report := svc.AnalyzePrototype(ctx, artifact, spec)
	assert.True(t, report.Fallback)
	assert.Equal(t, FallbackQualityReport(types.LanguageJA), report.Value)
	assert.Empty(t, report.Value.Improvements)
	for _, score := range report.Value.QualityScores {
		assert.GreaterOrEqual(t, score, 75.0)
		assert.LessOrEqual(t, score, 85.0)
	}

	fb := svc.AnalyzeFeedback(ctx, artifact, Feedback{Text: "見やすい", Rating: 4})
	assert.True(t, fb.Fallback)
	assert.Equal(t, FallbackFeedbackAnalysis(), fb.Value)

	rev := svc.RefineByFeedback(ctx, artifact, "ボタンを大きく")
	assert.True(t, rev.Fallback)
	assert.Equal(t, artifact, rev.Value.Artifact)
	assert.Equal(t, []string{"フィードバックを反映できませんでした"}, rev.Value.Changes)

	for _, r := range []*Notice{expand.Notice, qs.Notice, proto.Notice, report.Notice, fb.Notice, rev.Notice} {
		require.NotNil(t, r)
		assert.Equal(t, KindModelUnavailable, r.Kind)
		assert.NotEmpty(t, r.Message)
	}
	assert.Equal(t, []string{"expand", "questions", "prototype", "analyze", "feedback_analysis", "refine"}, client.stages)
}

func TestExpand_CredentialMissingNeverHitsNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	for _, key := range []string{"", llm.PlaceholderAPIKey} {
		client := llm.NewAnthropicClient(llm.AnthropicConfig{APIKey: key, BaseURL: srv.URL})
		res := New(client).Expand(context.Background(), learningIdea)
		require.True(t, res.Fallback)
		assert.Equal(t, KindCredentialMissing, res.Notice.Kind)
		assert.False(t, res.Notice.Retryable)
	}
	assert.Zero(t, hits.Load())

	res := New(nil).Expand(context.Background(), learningIdea)
	assert.Equal(t, KindCredentialMissing, res.Notice.Kind)
}

func TestExpand_SchemaMismatch(t *testing.T) {
	cases := map[string]string{
		"missing sections": `{"projectInfo":{"title":"x"}}`,
		"string not array": "```json\n" + `{"projectInfo":{"title":"t","domain":"d","targetUsers":"all","primaryGoals":["g"]},"uiRequirements":{"pages":[{"name":"n","purpose":"p","keyComponents":["c"]}],"designPrinciples":["d"],"interactions":["i"]},"technicalSpecs":{"responsive":true,"accessibility":"a","browserSupport":["b"],"frameworks":["f"]}}` + "\n```",
		"blank list item":  `{"projectInfo":{"title":"t","domain":"d","targetUsers":["u"],"primaryGoals":["g"]},"uiRequirements":{"pages":[{"name":"n","purpose":"p","keyComponents":[" "]}],"designPrinciples":["d"],"interactions":["i"]},"technicalSpecs":{"responsive":true,"accessibility":"a","browserSupport":["b"],"frameworks":["f"]}}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			res := New(&stubClient{text: text}).Expand(context.Background(), learningIdea)
			require.True(t, res.Fallback)
			assert.Equal(t, KindSchemaMismatch, res.Notice.Kind)
			assert.Equal(t, FallbackSpec(learningIdea), res.Value)
		})
	}
}

func TestGenerateQuestions_ModelAndDuplicates(t *testing.T) {
	res := New(llm.NewFakeClient()).GenerateQuestions(context.Background(), FallbackSpec(learningIdea))
	require.False(t, res.Fallback)
	require.Len(t, res.Value, 3)
	assert.Equal(t, types.MultiChoice, res.Value[2].Type)

	dup := `[{"id":"q1","question":"a","type":"single-choice","options":[{"id":"o","label":"l","value":"v"}],"priority":"high","required":true},
	         {"id":"q1","question":"b","type":"single-choice","options":[{"id":"o","label":"l","value":"v"}],"priority":"low","required":false}]`
	res = New(&stubClient{text: dup}).GenerateQuestions(context.Background(), FallbackSpec(learningIdea))
	assert.True(t, res.Fallback)
	assert.Equal(t, KindSchemaMismatch, res.Notice.Kind)

	res = New(&stubClient{text: "[]"}).GenerateQuestions(context.Background(), FallbackSpec(learningIdea))
	assert.True(t, res.Fallback)
}

func TestGeneratePrototype_Model(t *testing.T) {
	res := New(llm.NewFakeClient()).GeneratePrototype(context.Background(), FallbackSpec(learningIdea))
	require.False(t, res.Fallback)
	assert.Contains(t, res.Value.HTML, "<main class=\"dashboard\">")
	assert.NotNil(t, res.Value.Assets)
}

func TestAnalyze_ScoreOutOfRangeFallsBack(t *testing.T) {
	text := `{"qualityScores":{"accessibility":140},"strengths":[],"improvements":[]}`
	res := New(&stubClient{text: text}).AnalyzePrototype(context.Background(), types.GeneratedArtifact{}, FallbackSpec(learningIdea))
	assert.True(t, res.Fallback)
	assert.Equal(t, KindSchemaMismatch, res.Notice.Kind)

	ok := New(&stubClient{text: `{"qualityScores":{"accessibility":90},"strengths":["s"],"improvements":[]}`}).
		AnalyzePrototype(context.Background(), types.GeneratedArtifact{}, FallbackSpec(learningIdea))
	require.False(t, ok.Fallback)
	assert.Equal(t, []string{}, ok.Value.AccessibilityIssues)
}

func TestRefineAndFeedbackAnalysis_Model(t *testing.T) {
	svc := New(llm.NewFakeClient())
	rev := svc.RefineByFeedback(context.Background(), types.GeneratedArtifact{HTML: "<p></p>"}, "期間を選びたい")
	require.False(t, rev.Fallback)
	assert.Equal(t, []string{"期間フィルタを追加"}, rev.Value.Changes)

	an := svc.AnalyzeFeedback(context.Background(), rev.Value.Artifact, Feedback{Text: "期間を選びたい", Rating: 3})
	require.False(t, an.Fallback)
	assert.InDelta(t, 0.9, an.Value.UsabilityScore["contentClarity"], 1e-9)
}

func TestFallbackArtifact_EscapesTitle(t *testing.T) {
	spec := FallbackSpec(learningIdea).WithTitle(`<script>alert("x")</script>`)
	a := FallbackArtifact(spec, types.LanguageEN)
	assert.NotContains(t, a.HTML, "<script>alert")
	assert.Contains(t, a.HTML, "&lt;script&gt;")
	assert.Contains(t, a.HTML, `<html lang="en">`)
	assert.Equal(t, fallbackJS, a.JavaScript)
}

func TestNoticeLanguage(t *testing.T) {
	ctx := WithLanguage(context.Background(), types.LanguageEN)
	res := New(&stubClient{err: errors.New("boom")}).GenerateQuestions(ctx, FallbackSpec(learningIdea))
	assert.Equal(t, "Which feature matters most?", res.Value[0].Question)
	assert.Contains(t, res.Notice.Message, "could not be reached")
	assert.Equal(t, types.LanguageJA, LanguageFrom(context.Background()))
}

// Expansion never fails and always yields a complete specification, whatever
// the idea text and however the backend misbehaves.
func TestExpand_PropertyAlwaysValid(t *testing.T) {
	alphabet := []rune("abcdefghijklmnopqrstuvwxyz ,.、。学習進捗課題提出成績確認アプリ0123456789<>&\"'\n\t")
	clients := []llm.Client{
		llm.NewFakeClient(),
		&stubClient{err: llm.ErrModelUnavailable},
		&stubClient{text: "not json at all"},
		&stubClient{text: `{"projectInfo":null}`},
		&stubClient{text: "```json\n{\"broken\": \n```"},
		nil,
	}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 300; i++ {
		n := types.MinIdeaLength + rng.Intn(120)
		idea := make([]rune, n)
		for j := range idea {
			idea[j] = alphabet[rng.Intn(len(alphabet))]
		}
		users := make([]rune, rng.Intn(12))
		for j := range users {
			users[j] = alphabet[rng.Intn(len(alphabet))]
		}
		lang := types.LanguageJA
		if rng.Intn(2) == 0 {
			lang = types.LanguageEN
		}
		in := types.IdeaInput{Idea: string(idea), TargetUsers: string(users), Language: lang}
		res := New(clients[rng.Intn(len(clients))]).Expand(context.Background(), in)
		require.NoError(t, res.Value.Validate(), "idea %q", in.Idea)
		assert.Equal(t, res.Fallback, res.Notice != nil)
	}
}

func TestExpandPrompt_Deterministic(t *testing.T) {
	a, err := ExpandPrompt(learningIdea)
	require.NoError(t, err)
	b, err := ExpandPrompt(learningIdea.Clone())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a.Prompt, learningIdea.Idea)
	assert.Contains(t, a.Prompt, "[OUTPUT_FORMAT]")
	assert.Contains(t, a.System, "UIデザイナー")

	en, err := ExpandPrompt(types.IdeaInput{Idea: "x", Language: types.LanguageEN})
	require.NoError(t, err)
	assert.Contains(t, en.Prompt, "[LANGUAGE]\nEnglish")
	assert.Contains(t, en.Prompt, "not specified")
}
