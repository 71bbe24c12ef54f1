package generation

import (
	"context"
	"fmt"
	"html"

	"rapidproto/internal/llm"
	"rapidproto/internal/llmtool"
	"rapidproto/internal/types"
)

var prototypeSchema = llmtool.Object(
	llmtool.Prop("html", llmtool.String().Required().Describe("complete HTML document")),
	llmtool.Prop("css", llmtool.String().Describe("stylesheet")),
	llmtool.Prop("javascript", llmtool.String().Describe("script for interactions")),
	llmtool.Optional("explanation", llmtool.String()),
)

type prototypeResponse struct {
	HTML        string `json:"html"`
	CSS         string `json:"css"`
	JavaScript  string `json:"javascript"`
	Explanation string `json:"explanation,omitempty"`
}

func PrototypePrompt(spec types.ExpandedSpecification, lang types.Language) (llm.Request, error) {
	p := llmtool.StructuredPromptSpec{
		Purpose: pick(lang,
			"要件仕様に基づいて、実用的なHTMLプロトタイプを生成してください。",
			"Generate a working HTML prototype from the specification."),
		Background: pick(lang,
			"HTMLは styles.css と script.js を読み込む前提です。",
			"The HTML links styles.css and script.js."),
		Input:  spec,
		Output: prototypeSchema,
		Rules: picks(lang, []string{
			"完全に機能するHTMLプロトタイプを作成してください。",
			"モダンなCSS（Grid、Flexbox）を使用してください。",
			"基本的なインタラクションを実装してください。",
			"プレースホルダーコンテンツを適切に配置してください。",
			"カラースキームとタイポグラフィを統一してください。",
			"ローディング状態やエラー状態も考慮してください。",
		}, []string{
			"Produce a fully working HTML prototype.",
			"Use modern CSS (Grid, Flexbox).",
			"Implement the basic interactions.",
			"Place sensible placeholder content.",
			"Keep the color scheme and typography consistent.",
			"Cover loading and error states.",
		}),
	}
	p = llmtool.ApplyPresets(p, llmtool.PresetAccessible(lang))
	return promptRequest(p, pick(lang,
		"あなたは優秀なフロントエンド開発者です。",
		"You are an expert front-end developer."), lang)
}

// GeneratePrototype produces a complete artifact for the refined spec.
func (s *Service) GeneratePrototype(ctx context.Context, spec types.ExpandedSpecification) Result[types.GeneratedArtifact] {
	lang := LanguageFrom(ctx)
	req, err := PrototypePrompt(spec, lang)
	return run(ctx, s, call[prototypeResponse, types.GeneratedArtifact]{
		stage:    StagePrototype,
		lang:     lang,
		req:      req,
		buildErr: err,
		schema:   prototypeSchema,
		convert: func(r prototypeResponse) (types.GeneratedArtifact, error) {
			return types.GeneratedArtifact{HTML: r.HTML, CSS: r.CSS, JavaScript: r.JavaScript, Assets: [][]byte{}}, nil
		},
		fallback: func() types.GeneratedArtifact { return FallbackArtifact(spec, lang) },
	})
}

const fallbackCSS = `body { font-family: sans-serif; margin: 0; padding: 20px; }
.container { max-width: 800px; margin: 0 auto; }`

const fallbackJS = `console.log('Prototype loaded');`

// FallbackArtifact renders a static notice page. The only interpolated
// value is the escaped project title.
func FallbackArtifact(spec types.ExpandedSpecification, lang types.Language) types.GeneratedArtifact {
	lang = lang.Normalize()
	title := spec.ProjectInfo.Title
	if title == "" {
		title = pick(lang, "プロトタイプ", "Prototype")
	}
	title = html.EscapeString(title)
	notice := pick(lang,
		"AIサービスが利用できないため、基本的なテンプレートを表示しています。",
		"The AI service is unavailable, so a basic template is shown.")
	doc := fmt.Sprintf(`<!DOCTYPE html>
<html lang="%s">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>%s</title>
  <link rel="stylesheet" href="styles.css">
</head>
<body>
  <div class="container">
    <h1>%s</h1>
    <p>%s</p>
  </div>
  <script src="script.js"></script>
</body>
</html>`, lang, title, title, notice)
	return types.GeneratedArtifact{HTML: doc, CSS: fallbackCSS, JavaScript: fallbackJS, Assets: [][]byte{}}
}
