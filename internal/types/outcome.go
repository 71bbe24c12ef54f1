package types

// Phase payloads -------------------------------------------------------------------

// RefinementOutcome is the refinement stage's completed payload: the refined
// specification plus the question set and answers that shaped it.
type RefinementOutcome struct {
	Spec      ExpandedSpecification `json:"refinedSpec"`
	Questions []RefinementQuestion  `json:"questions"`
	Answers   AnswerSet             `json:"answers"`
}

func (o RefinementOutcome) Clone() RefinementOutcome {
	return RefinementOutcome{
		Spec:      o.Spec.Clone(),
		Questions: CloneQuestions(o.Questions),
		Answers:   o.Answers.Clone(),
	}
}

type GenerationOutcome struct {
	Artifact GeneratedArtifact `json:"artifact"`
	Report   *QualityReport    `json:"report,omitempty"`
}

func (o GenerationOutcome) Clone() GenerationOutcome {
	out := GenerationOutcome{Artifact: o.Artifact.Clone()}
	if o.Report != nil {
		r := o.Report.Clone()
		out.Report = &r
	}
	return out
}

// FeedbackOutcome closes a session. Revision is set when feedback was applied
// to produce a replacement artifact.
type FeedbackOutcome struct {
	Text     string            `json:"text"`
	Rating   int               `json:"rating"`
	Analysis *FeedbackAnalysis `json:"analysis,omitempty"`
	Revision *FeedbackRevision `json:"revision,omitempty"`
}

func (o FeedbackOutcome) Clone() FeedbackOutcome {
	out := FeedbackOutcome{Text: o.Text, Rating: o.Rating}
	if o.Analysis != nil {
		a := o.Analysis.Clone()
		out.Analysis = &a
	}
	if o.Revision != nil {
		r := o.Revision.Clone()
		out.Revision = &r
	}
	return out
}
