package export

import (
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"rapidproto/internal/types"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

type labels struct {
	report, quality, strengths, improvements, accessibility, performance string
	feedback, usability, requests, priorities, changes, category, score  string
}

var reportLabels = map[types.Language]labels{
	types.LanguageJA: {
		report: "プロトタイプレポート", quality: "品質スコア", strengths: "強み", improvements: "改善提案",
		accessibility: "アクセシビリティの課題", performance: "パフォーマンスの考慮事項",
		feedback: "フィードバック分析", usability: "ユーザビリティスコア", requests: "よくある要望",
		priorities: "優先改善項目", changes: "変更点", category: "項目", score: "スコア",
	},
	types.LanguageEN: {
		report: "Prototype report", quality: "Quality scores", strengths: "Strengths", improvements: "Improvements",
		accessibility: "Accessibility issues", performance: "Performance considerations",
		feedback: "Feedback analysis", usability: "Usability scores", requests: "Common requests",
		priorities: "Priority improvements", changes: "Changes", category: "Category", score: "Score",
	},
}

// ReportMarkdown summarizes the analyses of a session. Sections without data
// are omitted.
func ReportMarkdown(in Input) string {
	l := reportLabels[in.Language.Normalize()]
	var b strings.Builder
	fmt.Fprintf(&b, "# %s: %s\n", l.report, orUntitled(in.Title))

	if r := in.Report; r != nil {
		fmt.Fprintf(&b, "\n## %s\n\n", l.quality)
		scoreTable(&b, l, r.QualityScores, "%.0f")
		bullets(&b, l.strengths, r.Strengths)
		if len(r.Improvements) > 0 {
			fmt.Fprintf(&b, "\n### %s\n\n", l.improvements)
			for _, imp := range r.Improvements {
				fmt.Fprintf(&b, "- **%s** (%s): %s\n", imp.Area, imp.Priority, imp.Suggestion)
			}
		}
		bullets(&b, l.accessibility, r.AccessibilityIssues)
		bullets(&b, l.performance, r.PerformanceConsiderations)
	}

	if a := in.Analysis; a != nil {
		fmt.Fprintf(&b, "\n## %s\n\n", l.feedback)
		fmt.Fprintf(&b, "### %s\n\n", l.usability)
		scoreTable(&b, l, a.UsabilityScore, "%.2f")
		bullets(&b, l.requests, a.CommonRequests)
		if len(a.PriorityImprovements) > 0 {
			fmt.Fprintf(&b, "\n### %s\n\n", l.priorities)
			for _, p := range a.PriorityImprovements {
				fmt.Fprintf(&b, "- **%s** (impact %s, effort %s): %s\n", p.Area, p.Impact, p.Effort, p.Suggestion)
			}
		}
	}

	bullets(&b, l.changes, in.Changes)
	return b.String()
}

func scoreTable(b *strings.Builder, l labels, scores map[string]float64, format string) {
	if len(scores) == 0 {
		return
	}
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "| %s | %s |\n| --- | ---: |\n", l.category, l.score)
	for _, k := range keys {
		fmt.Fprintf(b, "| %s | "+format+" |\n", k, scores[k])
	}
}

func bullets(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

// RenderHTML converts the markdown report into a standalone page.
func RenderHTML(title, md string, lang types.Language) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	var out strings.Builder
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n<meta charset=\"UTF-8\">\n<title>%s</title>\n</head>\n<body>\n",
		lang.Normalize(), html.EscapeString(orUntitled(title)))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.String(), nil
}

func orUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}
	return title
}
