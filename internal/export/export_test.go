package export

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapidproto/internal/gateway/repository/artifact"
	"rapidproto/internal/types"
)

func sampleInput() Input {
	return Input{
		Title:    "学習 <管理>",
		Language: types.LanguageJA,
		Artifact: &types.GeneratedArtifact{HTML: "<h1>x</h1>", CSS: "h1{}", JavaScript: "void 0;"},
		Report: &types.QualityReport{
			QualityScores: map[string]float64{"usability": 80, "accessibility": 85},
			Strengths:     []string{"シンプル"},
			Improvements:  []types.Improvement{{Area: "nav", Suggestion: "add breadcrumbs", Priority: types.LevelHigh}},
		},
		Analysis: &types.FeedbackAnalysis{UsabilityScore: map[string]float64{"overall": 0.85}},
		Changes:  []string{"課題優先度表示"},
	}
}

func TestReportMarkdown(t *testing.T) {
	md := ReportMarkdown(sampleInput())
	assert.True(t, strings.HasPrefix(md, "# プロトタイプレポート: 学習 <管理>\n"))
	assert.Less(t, strings.Index(md, "| accessibility | 85 |"), strings.Index(md, "| usability | 80 |"))
	assert.Contains(t, md, "- **nav** (high): add breadcrumbs")
	assert.Contains(t, md, "| overall | 0.85 |")
	assert.Contains(t, md, "### 変更点\n\n- 課題優先度表示\n")
	assert.NotContains(t, md, "アクセシビリティの課題")
}

func TestReportMarkdown_English(t *testing.T) {
	in := Input{Language: types.LanguageEN, Artifact: &types.GeneratedArtifact{}}
	assert.Equal(t, "# Prototype report: Untitled\n", ReportMarkdown(in))
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML("a<b", "# Title\n\n| a | b |\n| --- | --- |\n| 1 | 2 |\n", types.LanguageEN)
	require.NoError(t, err)
	assert.Contains(t, page, `<html lang="en">`)
	assert.Contains(t, page, "<title>a&lt;b</title>")
	assert.Contains(t, page, "<h1>Title</h1>")
	assert.Contains(t, page, "<table>")
}

func TestBuild_RequiresArtifact(t *testing.T) {
	_, err := Build(Input{})
	assert.ErrorIs(t, err, ErrNoArtifact)
}

func TestExporter_StoresEveryFile(t *testing.T) {
	ctx := context.Background()
	store := artifact.NewMemoryStore()
	e := NewExporter(store, nil)
	e.newID = func() string { return "export-1" }

	m, err := e.Export(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "export-1", m.BundleID)

	names, err := store.List(ctx, "export-1")
	require.NoError(t, err)
	assert.Equal(t, []string{FileHTML, FileReportHTML, FileReportMD, FileJS, FileCSS}, names)

	html, err := e.Read(ctx, "export-1", FileHTML)
	require.NoError(t, err)
	assert.Equal(t, "<h1>x</h1>", string(html))
	for _, f := range m.Files {
		assert.Empty(t, f.URL)
	}
}
