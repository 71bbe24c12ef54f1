// Package export turns a finished session into a downloadable bundle: the
// prototype files plus a markdown report and its HTML rendering.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rapidproto/internal/gateway/repository/artifact"
	"rapidproto/internal/types"
)

const (
	FileHTML       = "index.html"
	FileCSS        = "styles.css"
	FileJS         = "script.js"
	FileReportMD   = "report.md"
	FileReportHTML = "report.html"
)

var ErrNoArtifact = errors.New("export: no artifact to export")

// Input is everything a bundle is built from.
type Input struct {
	Title    string
	Language types.Language
	Artifact *types.GeneratedArtifact
	Report   *types.QualityReport
	Analysis *types.FeedbackAnalysis
	Changes  []string
}

type File struct {
	Name    string `json:"name"`
	Content []byte `json:"-"`
}

type Bundle struct {
	Files []File
}

func Build(in Input) (Bundle, error) {
	if in.Artifact == nil {
		return Bundle{}, ErrNoArtifact
	}
	md := ReportMarkdown(in)
	page, err := RenderHTML(in.Title, md, in.Language)
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{Files: []File{
		{Name: FileHTML, Content: []byte(in.Artifact.HTML)},
		{Name: FileCSS, Content: []byte(in.Artifact.CSS)},
		{Name: FileJS, Content: []byte(in.Artifact.JavaScript)},
		{Name: FileReportMD, Content: []byte(md)},
		{Name: FileReportHTML, Content: []byte(page)},
	}}, nil
}

// FileRef locates one stored file. URL is empty for stores that cannot
// presign.
type FileRef struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	URL  string `json:"url,omitempty"`
}

type Manifest struct {
	BundleID string    `json:"bundleId"`
	Files    []FileRef `json:"files"`
}

type Exporter struct {
	store  artifact.Store
	logger *zap.Logger
	newID  func() string
}

func NewExporter(store artifact.Store, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, logger: logger, newID: func() string { return "export-" + uuid.NewString() }}
}

// Export builds the bundle for in and writes every file under a fresh id.
func (e *Exporter) Export(ctx context.Context, in Input) (Manifest, error) {
	b, err := Build(in)
	if err != nil {
		return Manifest{}, err
	}
	m := Manifest{BundleID: e.newID()}
	for _, f := range b.Files {
		if err := e.store.Put(ctx, m.BundleID, f.Name, f.Content); err != nil {
			return Manifest{}, fmt.Errorf("store %s: %w", f.Name, err)
		}
		url, err := e.store.GetURL(ctx, m.BundleID, f.Name)
		if err != nil {
			e.logger.Warn("presign failed", zap.String("bundle_id", m.BundleID), zap.String("file", f.Name), zap.Error(err))
		}
		m.Files = append(m.Files, FileRef{Name: f.Name, Size: len(f.Content), URL: url})
	}
	e.logger.Info("bundle exported", zap.String("bundle_id", m.BundleID), zap.Int("files", len(m.Files)))
	return m, nil
}

// Read returns one file of a stored bundle.
func (e *Exporter) Read(ctx context.Context, bundleID, name string) ([]byte, error) {
	return e.store.Get(ctx, bundleID, name)
}
