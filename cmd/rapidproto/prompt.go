package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"rapidproto/internal/generation"
	"rapidproto/internal/llm"
	"rapidproto/internal/types"
)

// promptInput is the JSON document read by `prompt`. Each stage reads only
// the members it needs.
type promptInput struct {
	Idea     types.IdeaInput             `json:"idea"`
	Spec     types.ExpandedSpecification `json:"spec"`
	Artifact types.GeneratedArtifact     `json:"artifact"`
	Feedback generation.Feedback         `json:"feedback"`
	Language types.Language              `json:"language"`
}

func newPromptCmd() *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:       "prompt <stage>",
		Short:     "Print the rendered prompt of a stage for an input file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: stageNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in promptInput
			if inputPath != "" {
				if err := readJSONFile(inputPath, &in); err != nil {
					return err
				}
			}
			req, err := buildPrompt(generation.Stage(args[0]), in)
			if err != nil {
				return err
			}
			return printPrompt(cmd.OutOrStdout(), req)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file with idea/spec/artifact/feedback members")
	return cmd
}

func stageNames() []string {
	return []string{
		string(generation.StageExpand), string(generation.StageQuestions), string(generation.StagePrototype),
		string(generation.StageAnalyze), string(generation.StageFeedbackAnalysis), string(generation.StageRefine),
	}
}

func buildPrompt(stage generation.Stage, in promptInput) (llm.Request, error) {
	lang := in.Language.Normalize()
	switch stage {
	case generation.StageExpand:
		if in.Idea.Language == "" {
			in.Idea.Language = lang
		}
		return generation.ExpandPrompt(in.Idea)
	case generation.StageQuestions:
		return generation.QuestionsPrompt(in.Spec, lang)
	case generation.StagePrototype:
		return generation.PrototypePrompt(in.Spec, lang)
	case generation.StageAnalyze:
		return generation.AnalyzePrompt(in.Artifact, in.Spec, lang)
	case generation.StageFeedbackAnalysis:
		return generation.FeedbackAnalysisPrompt(in.Artifact, in.Feedback, lang)
	case generation.StageRefine:
		return generation.RefinePrompt(in.Artifact, in.Feedback.Text, lang)
	default:
		return llm.Request{}, fmt.Errorf("unknown stage %q (want one of %v)", stage, stageNames())
	}
}

func printPrompt(w io.Writer, req llm.Request) error {
	if req.System != "" {
		if _, err := fmt.Fprintf(w, "# system\n%s\n\n# prompt\n", req.System); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, req.Prompt)
	return err
}
