package llm

import (
	"context"
	"sync/atomic"
)

// FakeClient returns deterministic, schema-valid payloads per stage for
// offline runs and tests. The stage is read from the context (WithStage).
type FakeClient struct {
	calls atomic.Int64
}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Calls reports how many requests were served.
func (f *FakeClient) Calls() int64 { return f.calls.Load() }

func (f *FakeClient) Generate(ctx context.Context, _ Request) (string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch StageFrom(ctx) {
	case "expand":
		return "仕様を拡張しました。\n```json\n" + fakeExpand + "\n```\n", nil
	case "questions":
		return fakeQuestions, nil
	case "prototype":
		return fakePrototype, nil
	case "analyze":
		return fakeAnalyze, nil
	case "feedback_analysis":
		return fakeFeedbackAnalysis, nil
	case "refine":
		return fakeRefine, nil
	default:
		return "{}", nil
	}
}

const fakeExpand = `{
  "projectInfo": {
    "title": "オンライン学習プラットフォーム ダッシュボード",
    "domain": "教育",
    "targetUsers": ["大学生"],
    "primaryGoals": ["進捗管理", "タスク管理", "パフォーマンス分析"]
  },
  "uiRequirements": {
    "pages": [
      {"name": "ダッシュボード", "purpose": "全体の状況を一覧表示", "keyComponents": ["統計情報", "グラフ", "通知エリア"]},
      {"name": "進捗管理", "purpose": "進捗状況の詳細表示", "keyComponents": ["進捗グラフ", "タイムライン", "マイルストーン"]}
    ],
    "designPrinciples": ["モバイルファースト", "直感的操作", "情報の視認性"],
    "interactions": ["ドリルダウン"]
  },
  "technicalSpecs": {
    "responsive": true,
    "accessibility": "WCAG 2.1 AA準拠",
    "browserSupport": ["Chrome", "Safari", "Firefox", "Edge"],
    "frameworks": ["HTML5", "CSS3", "JavaScript ES6+"]
  }
}`

const fakeQuestions = `[
  {
    "id": "q1",
    "question": "ダッシュボードで最も優先して表示したい情報は何ですか？",
    "type": "single-choice",
    "options": [
      {"id": "opt1", "label": "学習進捗", "value": "learning_progress"},
      {"id": "opt2", "label": "未提出の課題", "value": "pending_assignments"},
      {"id": "opt3", "label": "成績", "value": "grades"}
    ],
    "priority": "high",
    "required": true,
    "impact": "ダッシュボードの主要コンポーネント"
  },
  {
    "id": "q2",
    "question": "主に利用されるデバイスはどれですか？",
    "type": "single-choice",
    "options": [
      {"id": "opt1", "label": "スマートフォン", "value": "mobile_first"},
      {"id": "opt2", "label": "PC", "value": "desktop_first"}
    ],
    "priority": "medium",
    "required": false,
    "impact": "レイアウト方針"
  },
  {
    "id": "q3",
    "question": "追加したい機能を選んでください",
    "type": "multi-choice",
    "options": [
      {"id": "opt1", "label": "ダークモード", "value": "dark_mode"},
      {"id": "opt2", "label": "通知", "value": "notifications"},
      {"id": "opt3", "label": "検索", "value": "search"}
    ],
    "priority": "low",
    "required": false,
    "impact": "追加機能"
  }
]`

const fakePrototype = `{
  "html": "<!DOCTYPE html>\n<html lang=\"ja\">\n<head>\n  <meta charset=\"UTF-8\">\n  <title>ダッシュボード</title>\n  <link rel=\"stylesheet\" href=\"styles.css\">\n</head>\n<body>\n  <main class=\"dashboard\"><h1>ダッシュボード</h1></main>\n  <script src=\"script.js\"></script>\n</body>\n</html>",
  "css": ".dashboard { display: grid; gap: 16px; }",
  "javascript": "document.addEventListener('DOMContentLoaded', () => console.log('ready'));",
  "explanation": "ダッシュボードの骨組み"
}`

const fakeAnalyze = `{
  "qualityScores": {"accessibility": 88, "responsiveness": 90, "codeQuality": 82, "designConsistency": 86},
  "strengths": ["セマンティックなHTML構造"],
  "improvements": [{"area": "アクセシビリティ", "suggestion": "ランドマークにaria-labelを付与する", "priority": "medium"}],
  "accessibilityIssues": [],
  "performanceConsiderations": ["画像の遅延読み込み"]
}`

const fakeFeedbackAnalysis = `{
  "usabilityScore": {"navigation": 0.8, "contentClarity": 0.9, "visualHierarchy": 0.75},
  "commonRequests": ["グラフの期間を切り替えたい"],
  "priorityImprovements": [{"area": "グラフ", "impact": "high", "effort": "medium", "suggestion": "期間フィルタを追加する"}]
}`

const fakeRefine = `{
  "html": "<!DOCTYPE html>\n<html lang=\"ja\">\n<head>\n  <meta charset=\"UTF-8\">\n  <title>ダッシュボード</title>\n  <link rel=\"stylesheet\" href=\"styles.css\">\n</head>\n<body>\n  <main class=\"dashboard\"><h1>ダッシュボード</h1><select aria-label=\"期間\"></select></main>\n  <script src=\"script.js\"></script>\n</body>\n</html>",
  "css": ".dashboard { display: grid; gap: 16px; }",
  "javascript": "document.addEventListener('DOMContentLoaded', () => console.log('ready'));",
  "changes": ["期間フィルタを追加"]
}`
