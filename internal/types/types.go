package types

import "strings"

// Language of the idea and of every generated text derived from it.
type Language string

const (
	LanguageJA Language = "ja"
	LanguageEN Language = "en"
)

// Normalize maps unknown or empty values onto the default language.
func (l Language) Normalize() Language {
	switch Language(strings.ToLower(strings.TrimSpace(string(l)))) {
	case LanguageEN:
		return LanguageEN
	default:
		return LanguageJA
	}
}

// Input stage --------------------------------------------------------------------

type UploadedImage struct {
	Name string `json:"name"`
	Data string `json:"data"`
	Size int64  `json:"size"`
}

// IdeaInput is captured once by the input collaborator and never changed
// afterwards. The core performs no validation beyond its shape.
type IdeaInput struct {
	Idea           string          `json:"idea"`
	TargetUsers    string          `json:"targetUsers"`
	Constraints    string          `json:"constraints"`
	ReferenceURLs  []string        `json:"referenceUrls,omitempty"`
	UploadedImages []UploadedImage `json:"uploadedImages,omitempty"`
	Language       Language        `json:"language"`
}

// MinIdeaLength is the minimum rune count the input collaborator enforces.
const MinIdeaLength = 20

func (in IdeaInput) Clone() IdeaInput {
	out := in
	out.ReferenceURLs = cloneStrings(in.ReferenceURLs)
	if in.UploadedImages != nil {
		out.UploadedImages = append([]UploadedImage(nil), in.UploadedImages...)
	}
	return out
}

// Generation stage ---------------------------------------------------------------

// GeneratedArtifact is always replaced as a whole; regeneration never patches it.
type GeneratedArtifact struct {
	HTML       string   `json:"html"`
	CSS        string   `json:"css"`
	JavaScript string   `json:"javascript"`
	Assets     [][]byte `json:"assets"`
}

func (a GeneratedArtifact) Clone() GeneratedArtifact {
	out := a
	if a.Assets != nil {
		out.Assets = make([][]byte, len(a.Assets))
		for i, b := range a.Assets {
			out.Assets[i] = append([]byte(nil), b...)
		}
	}
	return out
}

type Improvement struct {
	Area       string `json:"area"`
	Suggestion string `json:"suggestion"`
	Priority   Level  `json:"priority"`
}

// QualityReport is the analyzer's view of a generated artifact. Scores are
// percentages in [0,100].
type QualityReport struct {
	QualityScores             map[string]float64 `json:"qualityScores"`
	Strengths                 []string           `json:"strengths"`
	Improvements              []Improvement      `json:"improvements"`
	AccessibilityIssues       []string           `json:"accessibilityIssues"`
	PerformanceConsiderations []string           `json:"performanceConsiderations"`
}

func (r QualityReport) Clone() QualityReport {
	out := r
	out.QualityScores = cloneScores(r.QualityScores)
	out.Strengths = cloneStrings(r.Strengths)
	if r.Improvements != nil {
		out.Improvements = append([]Improvement(nil), r.Improvements...)
	}
	out.AccessibilityIssues = cloneStrings(r.AccessibilityIssues)
	out.PerformanceConsiderations = cloneStrings(r.PerformanceConsiderations)
	return out
}

// Feedback stage -----------------------------------------------------------------

// Level is the shared high/medium/low scale used for priority, impact and effort.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

func (l Level) Valid() bool {
	switch l {
	case LevelHigh, LevelMedium, LevelLow:
		return true
	}
	return false
}

type PriorityImprovement struct {
	Area       string `json:"area"`
	Impact     Level  `json:"impact"`
	Effort     Level  `json:"effort"`
	Suggestion string `json:"suggestion"`
}

// FeedbackAnalysis scores usability per category as fractions in [0,1].
type FeedbackAnalysis struct {
	UsabilityScore       map[string]float64    `json:"usabilityScore"`
	CommonRequests       []string              `json:"commonRequests"`
	PriorityImprovements []PriorityImprovement `json:"priorityImprovements"`
}

func (f FeedbackAnalysis) Clone() FeedbackAnalysis {
	out := f
	out.UsabilityScore = cloneScores(f.UsabilityScore)
	out.CommonRequests = cloneStrings(f.CommonRequests)
	if f.PriorityImprovements != nil {
		out.PriorityImprovements = append([]PriorityImprovement(nil), f.PriorityImprovements...)
	}
	return out
}

// FeedbackRevision is a full replacement artifact plus the change notes the
// model (or the fallback) reported.
type FeedbackRevision struct {
	Artifact GeneratedArtifact `json:"artifact"`
	Changes  []string          `json:"changes"`
}

func (r FeedbackRevision) Clone() FeedbackRevision {
	return FeedbackRevision{Artifact: r.Artifact.Clone(), Changes: cloneStrings(r.Changes)}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneScores(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
