package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rapidproto/internal/export"
	"rapidproto/internal/gateway/config"
	"rapidproto/internal/gateway/handler/rpc"
	"rapidproto/internal/gateway/repository/artifact"
	"rapidproto/internal/llm"
	"rapidproto/internal/pipeline"
	"rapidproto/internal/refinement"
	"rapidproto/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:    ":0",
		LLM:     config.LLMConfig{Provider: llm.ProviderFake, MaxTokens: 1024},
		Session: config.SessionConfig{Max: 8, IdleTTL: time.Hour},
	}
}

func newTestServer(t *testing.T, client llm.Client) (*httptest.Server, *artifact.MemoryStore) {
	t.Helper()
	store := artifact.NewMemoryStore()
	a := build(testConfig(), client, store, nil, nil)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func call[Req, Res any](t *testing.T, srv *httptest.Server, name string, req *Req) (*Res, error) {
	t.Helper()
	c := connect.NewClient[Req, Res](srv.Client(), srv.URL+rpc.ServicePath+name, connect.WithCodec(rpc.Codec()))
	res, err := c.CallUnary(context.Background(), connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func step(t *testing.T, srv *httptest.Server, name string, req any) *rpc.StateResponse {
	t.Helper()
	var (
		res *rpc.StateResponse
		err error
	)
	switch r := req.(type) {
	case *rpc.WorkspaceRequest:
		res, err = call[rpc.WorkspaceRequest, rpc.StateResponse](t, srv, name, r)
	case *rpc.SubmitIdeaRequest:
		res, err = call[rpc.SubmitIdeaRequest, rpc.StateResponse](t, srv, name, r)
	case *rpc.EditSpecRequest:
		res, err = call[rpc.EditSpecRequest, rpc.StateResponse](t, srv, name, r)
	case *rpc.AnswerRequest:
		res, err = call[rpc.AnswerRequest, rpc.StateResponse](t, srv, name, r)
	case *rpc.SkipRequest:
		res, err = call[rpc.SkipRequest, rpc.StateResponse](t, srv, name, r)
	case *rpc.FeedbackRequest:
		res, err = call[rpc.FeedbackRequest, rpc.StateResponse](t, srv, name, r)
	default:
		t.Fatalf("unsupported request %T", req)
	}
	require.NoError(t, err, name)
	return res
}

var idea = types.IdeaInput{
	Idea:        "大学生向けの課題管理と学習進捗を一画面で見られるアプリ",
	TargetUsers: "大学生、教員",
	Language:    types.LanguageJA,
}

func TestGateway_FullSession(t *testing.T) {
	srv, store := newTestServer(t, llm.NewFakeClient())

	created := step(t, srv, "CreateWorkspace", &rpc.WorkspaceRequest{})
	id := created.WorkspaceID
	require.True(t, strings.HasPrefix(id, "ws-"))
	assert.Equal(t, pipeline.PhaseInput, created.View.State.CurrentPhase)
	ws := &rpc.WorkspaceRequest{WorkspaceID: id}

	step(t, srv, "SubmitIdea", &rpc.SubmitIdeaRequest{WorkspaceID: id, Input: idea})
	expanded := step(t, srv, "Expand", ws)
	assert.Empty(t, expanded.Notices)
	require.NotNil(t, expanded.View.Draft)

	edited := step(t, srv, "EditSpec", &rpc.EditSpecRequest{WorkspaceID: id, Edit: types.Edit{Field: types.FieldTitle, Text: "学習ダッシュボード"}})
	assert.Equal(t, "学習ダッシュボード", edited.View.Draft.ProjectInfo.Title)
	step(t, srv, "ConfirmExpansion", ws)

	loaded := step(t, srv, "LoadQuestions", ws)
	require.Len(t, loaded.View.Questions, 3)

	_, err := call[rpc.SkipRequest, rpc.StateResponse](t, srv, "Skip", &rpc.SkipRequest{WorkspaceID: id, QuestionID: "q1"})
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	_, err = call[rpc.AnswerRequest, rpc.StateResponse](t, srv, "Answer", &rpc.AnswerRequest{WorkspaceID: id, QuestionID: "q9", Value: "x"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	step(t, srv, "Answer", &rpc.AnswerRequest{WorkspaceID: id, QuestionID: "q1", Value: "pending_assignments"})
	step(t, srv, "Skip", &rpc.SkipRequest{WorkspaceID: id, QuestionID: "q2"})
	answered := step(t, srv, "Answer", &rpc.AnswerRequest{WorkspaceID: id, QuestionID: "q3", Value: "dark_mode", Toggle: true})
	assert.True(t, answered.View.CanProceed)
	assert.Equal(t, []string{"課題優先度表示", "ダークモード対応"}, answered.View.Changes)
	step(t, srv, "ConfirmRefinement", ws)

	generated := step(t, srv, "Generate", ws)
	require.NotNil(t, generated.View.Artifact)
	require.NotNil(t, generated.View.Report)
	step(t, srv, "ConfirmGeneration", ws)

	step(t, srv, "SubmitFeedback", &rpc.FeedbackRequest{WorkspaceID: id, Text: "期間を切り替えたい", Rating: 4})
	applied := step(t, srv, "ApplyFeedback", ws)
	require.NotNil(t, applied.View.Revision)

	exported, err := call[rpc.WorkspaceRequest, rpc.ExportResponse](t, srv, "Export", ws)
	require.NoError(t, err)
	names, err := store.List(context.Background(), exported.Manifest.BundleID)
	require.NoError(t, err)
	assert.Len(t, names, 5)
	page, err := store.Get(context.Background(), exported.Manifest.BundleID, export.FileHTML)
	require.NoError(t, err)
	assert.Equal(t, applied.View.Revision.Artifact.HTML, string(page))

	done := step(t, srv, "Complete", ws)
	assert.True(t, done.View.State.Finished)

	_, err = call[rpc.WorkspaceRequest, rpc.StateResponse](t, srv, "Expand", ws)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	fresh := step(t, srv, "NewProject", ws)
	assert.Equal(t, pipeline.PhaseInput, fresh.View.State.CurrentPhase)
	assert.NotEqual(t, created.View.State.SessionID, fresh.View.State.SessionID)
	assert.Equal(t, id, fresh.WorkspaceID)
}

func TestGateway_FallbackNotices(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	id := step(t, srv, "CreateWorkspace", &rpc.WorkspaceRequest{}).WorkspaceID

	step(t, srv, "SubmitIdea", &rpc.SubmitIdeaRequest{WorkspaceID: id, Input: idea})
	res := step(t, srv, "Expand", &rpc.WorkspaceRequest{WorkspaceID: id})
	require.Len(t, res.Notices, 1)
	assert.Equal(t, "credential_missing", string(res.Notices[0].Kind))
	assert.False(t, res.Notices[0].Retryable)
}

func TestGateway_OneBackendCallPerStage(t *testing.T) {
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	}))
	defer backend.Close()

	cfg := testConfig()
	cfg.LLM = config.LLMConfig{
		Provider:  llm.ProviderAnthropic,
		APIKey:    "sk-test",
		MaxTokens: 256,
		BaseURL:   backend.URL,
		Timeout:   5 * time.Second,
		Burst:     1,
	}
	client, err := NewLLMClient(cfg.LLM, nil)
	require.NoError(t, err)
	a := build(cfg, client, artifact.NewMemoryStore(), nil, nil)
	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	id := step(t, srv, "CreateWorkspace", &rpc.WorkspaceRequest{}).WorkspaceID
	step(t, srv, "SubmitIdea", &rpc.SubmitIdeaRequest{WorkspaceID: id, Input: idea})
	res := step(t, srv, "Expand", &rpc.WorkspaceRequest{WorkspaceID: id})
	require.Len(t, res.Notices, 1)
	assert.Equal(t, "model_unavailable", string(res.Notices[0].Kind))
	assert.True(t, res.Notices[0].Retryable)
	assert.EqualValues(t, 1, hits.Load())

	step(t, srv, "Expand", &rpc.WorkspaceRequest{WorkspaceID: id})
	assert.EqualValues(t, 2, hits.Load(), "a retry is a second call from the user")
}

func TestGateway_Errors(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewFakeClient())

	_, err := call[rpc.WorkspaceRequest, rpc.StateResponse](t, srv, "GetState", &rpc.WorkspaceRequest{WorkspaceID: "ws-missing"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	id := step(t, srv, "CreateWorkspace", &rpc.WorkspaceRequest{}).WorkspaceID
	_, err = call[rpc.WorkspaceRequest, rpc.ExportResponse](t, srv, "Export", &rpc.WorkspaceRequest{WorkspaceID: id})
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = call[rpc.WorkspaceRequest, rpc.StateResponse](t, srv, "ConfirmExpansion", &rpc.WorkspaceRequest{WorkspaceID: id})
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}

func TestGateway_EventStream(t *testing.T) {
	srv, _ := newTestServer(t, llm.NewFakeClient())
	id := step(t, srv, "CreateWorkspace", &rpc.WorkspaceRequest{}).WorkspaceID

	resp, err := srv.Client().Get(srv.URL + "/ws/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events?workspace_id=" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg struct {
		Type  string          `json:"type"`
		Event *pipeline.Event `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "subscribed", msg.Type)

	step(t, srv, "SubmitIdea", &rpc.SubmitIdeaRequest{WorkspaceID: id, Input: idea})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, pipeline.EventPhaseCompleted, msg.Event.Type)
	assert.Equal(t, "input", msg.Event.Phase)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)
}

func TestLoadPatchTable(t *testing.T) {
	def, err := loadPatchTable(config.RefinementConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, refinement.DefaultTable(), def)

	path := filepath.Join(t.TempDir(), "patches.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`patches:
  - question: q1
    value: grades
    op: append_interaction
    item: 成績CSV出力
`), 0o600))
	custom, err := loadPatchTable(config.RefinementConfig{PatchFile: path}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, custom.Patches(), 1)

	require.NoError(t, os.WriteFile(path, []byte("patches:\n  - question: q1\n    value: x\n    op: rename\n    item: y\n"), 0o600))
	_, err = loadPatchTable(config.RefinementConfig{PatchFile: path}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown op")

	_, err = loadPatchTable(config.RefinementConfig{PatchFile: filepath.Join(t.TempDir(), "missing.yaml")}, zap.NewNop())
	assert.Error(t, err)
}
