package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rapidproto/internal/export"
	"rapidproto/internal/gateway/app"
	"rapidproto/internal/gateway/config"
	"rapidproto/internal/gateway/handler/rpc"
	"rapidproto/internal/generation"
	"rapidproto/internal/pipeline"
	"rapidproto/internal/safeio"
	"rapidproto/internal/types"
	"rapidproto/internal/util/jsonutil"
)

type runOptions struct {
	Input    types.IdeaInput
	Feedback string
	Rating   int
	OutDir   string
}

// Summary is printed as JSON once the session completes.
type Summary struct {
	SessionID string              `json:"sessionId"`
	Title     string              `json:"title"`
	Changes   []string            `json:"changes,omitempty"`
	Notices   []generation.Notice `json:"notices,omitempty"`
	Files     []string            `json:"files,omitempty"`
}

func newRunCmd() *cobra.Command {
	var (
		opts runOptions
		lang string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full session non-interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Input.Idea == "" {
				return fmt.Errorf("--idea is required")
			}
			opts.Input.Language = types.Language(lang).Normalize()
			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()

			r := pipeline.NewRunner(svc, pipeline.WithRunnerLogger(logger))
			sum, err := drive(cmd.Context(), r, opts)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), sum)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Input.Idea, "idea", "", "the product idea")
	f.StringVar(&opts.Input.TargetUsers, "target-users", "", "who the product is for")
	f.StringVar(&opts.Input.Constraints, "constraints", "", "constraints to respect")
	f.StringSliceVar(&opts.Input.ReferenceURLs, "reference-url", nil, "reference urls")
	f.StringVar(&lang, "lang", "ja", "language of prompts and output (ja, en)")
	f.StringVar(&opts.Feedback, "feedback", "", "feedback to apply after generation")
	f.IntVar(&opts.Rating, "rating", 0, "rating that accompanies --feedback")
	f.StringVar(&opts.OutDir, "out", "out", "directory the bundle is written to; empty skips writing")
	return cmd
}

// newService builds the generation service from the environment, with the
// --provider and --model flags applied on top.
func newService() (*generation.Service, func(), error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, nil, err
	}
	if provider != "" {
		cfg.LLM.Provider = provider
		cfg.LLM.APIKey = config.APIKeyFor(provider)
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	client, err := app.NewLLMClient(cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}
	return generation.New(client, generation.WithLogger(logger)), func() { _ = client.Close() }, nil
}

// drive walks the runner through all five phases. Required questions get
// their first option; optional ones are skipped.
func drive(ctx context.Context, r *pipeline.Runner, opts runOptions) (Summary, error) {
	var notices []generation.Notice
	note := func(n *generation.Notice) {
		if n != nil {
			notices = append(notices, *n)
		}
	}

	if err := r.SubmitIdea(opts.Input); err != nil {
		return Summary{}, err
	}
	exp, err := r.Expand(ctx)
	if err != nil {
		return Summary{}, err
	}
	note(exp.Notice)
	if err := r.ConfirmExpansion(); err != nil {
		return Summary{}, err
	}

	qs, err := r.LoadQuestions(ctx)
	if err != nil {
		return Summary{}, err
	}
	note(qs.Notice)
	for _, q := range qs.Value {
		if err := answerDefault(r, q); err != nil {
			return Summary{}, fmt.Errorf("question %s: %w", q.ID, err)
		}
	}
	if err := r.ConfirmRefinement(); err != nil {
		return Summary{}, err
	}

	_, ns, err := r.Generate(ctx)
	if err != nil {
		return Summary{}, err
	}
	notices = append(notices, ns...)
	if err := r.ConfirmGeneration(); err != nil {
		return Summary{}, err
	}

	if opts.Feedback != "" {
		an, err := r.SubmitFeedback(ctx, generation.Feedback{Text: opts.Feedback, Rating: opts.Rating})
		if err != nil {
			return Summary{}, err
		}
		note(an.Notice)
		rev, err := r.ApplyFeedback(ctx)
		if err != nil {
			return Summary{}, err
		}
		note(rev.Notice)
	}

	view := r.View()
	in := rpc.ExportInput(view)
	if err := r.Complete(); err != nil {
		return Summary{}, err
	}

	sum := Summary{SessionID: view.State.SessionID, Title: in.Title, Changes: view.Changes, Notices: notices}
	if opts.OutDir == "" {
		return sum, nil
	}
	bundle, err := export.Build(in)
	if err != nil {
		return Summary{}, err
	}
	out, err := safeio.NewSafeFS(opts.OutDir)
	if err != nil {
		return Summary{}, err
	}
	for _, f := range bundle.Files {
		path, err := out.SafeWriteFile(f.Name, f.Content)
		if err != nil {
			return Summary{}, err
		}
		sum.Files = append(sum.Files, path)
	}
	logger.Info("bundle written", zap.String("dir", opts.OutDir), zap.Int("files", len(sum.Files)))
	return sum, nil
}

func answerDefault(r *pipeline.Runner, q types.RefinementQuestion) error {
	if !q.Required || len(q.Options) == 0 {
		return r.Skip(q.ID)
	}
	first := q.Options[0].Value
	if q.Type == types.MultiChoice {
		return r.SetSelection(q.ID, []string{first})
	}
	return r.Answer(q.ID, first)
}

func writeSummary(w io.Writer, sum Summary) error {
	b, err := jsonutil.MarshalNoEscapeIndent(sum, "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func readJSONFile(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
