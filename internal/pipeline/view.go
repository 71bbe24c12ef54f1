package pipeline

import (
	"rapidproto/internal/generation"
	"rapidproto/internal/refinement"
	"rapidproto/internal/types"
)

// View is a read-only snapshot of a session and its drafts, shaped for
// rendering collaborators.
type View struct {
	State      SessionState                 `json:"state"`
	Busy       bool                         `json:"busy"`
	Draft      *types.ExpandedSpecification `json:"draft,omitempty"`
	Questions  []types.RefinementQuestion   `json:"questions,omitempty"`
	Answers    types.AnswerSet              `json:"answers,omitempty"`
	Answered   int                          `json:"answered"`
	Total      int                          `json:"total"`
	CanProceed bool                         `json:"canProceed"`
	Warnings   []refinement.Warning         `json:"warnings,omitempty"`
	Changes    []string                     `json:"changes,omitempty"`
	Working    *types.ExpandedSpecification `json:"workingSpec,omitempty"`
	Artifact   *types.GeneratedArtifact     `json:"artifact,omitempty"`
	Report     *types.QualityReport         `json:"report,omitempty"`
	Analysis   *types.FeedbackAnalysis      `json:"analysis,omitempty"`
	Revision   *types.FeedbackRevision      `json:"revision,omitempty"`
	Notices    []generation.Notice          `json:"notices,omitempty"`
}

func (r *Runner) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := View{State: r.ctrl.State(), Busy: r.ctrl.Busy()}
	if r.draft != nil {
		d := r.draft.Clone()
		v.Draft = &d
	}
	if w := r.workspace; w != nil {
		v.Questions = w.Questions()
		v.Answers = w.Answers()
		v.Answered, v.Total = w.Progress()
		v.CanProceed = w.CanProceed()
		v.Warnings = w.Warnings()
		v.Changes = w.Changes()
		spec := w.Spec().Clone()
		v.Working = &spec
	}
	if r.artifact != nil {
		a := r.artifact.Clone()
		v.Artifact = &a
	}
	if r.report != nil {
		rep := r.report.Clone()
		v.Report = &rep
	}
	if r.analysis != nil {
		an := r.analysis.Clone()
		v.Analysis = &an
	}
	if r.revision != nil {
		rev := r.revision.Clone()
		v.Revision = &rev
	}
	v.Notices = append([]generation.Notice(nil), r.notices...)
	return v
}

// Deliverable is the artifact the session currently stands behind: the
// latest feedback revision when one exists, else the generated artifact.
func (v View) Deliverable() (types.GeneratedArtifact, bool) {
	if v.Revision != nil {
		return v.Revision.Artifact, true
	}
	if v.Artifact != nil {
		return *v.Artifact, true
	}
	return types.GeneratedArtifact{}, false
}
