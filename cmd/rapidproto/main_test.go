package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapidproto/internal/export"
	"rapidproto/internal/generation"
	"rapidproto/internal/llm"
	"rapidproto/internal/pipeline"
	"rapidproto/internal/types"
)

var testIdea = types.IdeaInput{
	Idea:        "大学生向けの課題管理と学習進捗を一画面で見られるアプリ",
	TargetUsers: "大学生",
	Language:    types.LanguageJA,
}

func TestDrive_FakeBackend(t *testing.T) {
	dir := t.TempDir()
	r := pipeline.NewRunner(generation.New(llm.NewFakeClient()))
	sum, err := drive(context.Background(), r, runOptions{Input: testIdea, Feedback: "色を変えたい", Rating: 3, OutDir: dir})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sum.SessionID, "session-"))
	assert.NotEmpty(t, sum.Title)
	assert.Empty(t, sum.Notices)
	assert.Len(t, sum.Files, 5)
	assert.True(t, r.Controller().State().Finished)

	page, err := os.ReadFile(filepath.Join(dir, export.FileHTML))
	require.NoError(t, err)
	assert.NotEmpty(t, page)
}

func TestDrive_NoBackendFallsBack(t *testing.T) {
	r := pipeline.NewRunner(generation.New(nil))
	sum, err := drive(context.Background(), r, runOptions{Input: testIdea})
	require.NoError(t, err)

	stages := make([]generation.Stage, 0, len(sum.Notices))
	for _, n := range sum.Notices {
		assert.Equal(t, generation.NoticeKind("credential_missing"), n.Kind)
		stages = append(stages, n.Stage)
	}
	assert.Equal(t, []generation.Stage{
		generation.StageExpand, generation.StageQuestions, generation.StagePrototype, generation.StageAnalyze,
	}, stages)
	assert.Empty(t, sum.Files)
	assert.Empty(t, sum.Changes)
}

func TestBuildPrompt(t *testing.T) {
	for _, stage := range stageNames() {
		t.Run(stage, func(t *testing.T) {
			in := promptInput{Idea: testIdea, Spec: generation.FallbackSpec(testIdea), Artifact: types.GeneratedArtifact{HTML: "<p></p>"}}
			req, err := buildPrompt(generation.Stage(stage), in)
			require.NoError(t, err)
			assert.NotEmpty(t, req.Prompt)
		})
	}
	_, err := buildPrompt("nope", promptInput{})
	assert.ErrorContains(t, err, "unknown stage")
}

func TestPromptCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"idea":{"idea":"a todo app for families","language":"en"}}`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"prompt", "expand", "--input", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "# prompt\n")
	assert.Contains(t, out.String(), "a todo app for families")
}
