package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/db"
	"github.com/ziadkadry99/agentgw/internal/llm"
	"github.com/ziadkadry99/agentgw/internal/scheduler"
	"github.com/ziadkadry99/agentgw/internal/service"
	"github.com/ziadkadry99/agentgw/internal/skills"
	"github.com/ziadkadry99/agentgw/internal/store"
	"github.com/ziadkadry99/agentgw/internal/tools"
	"github.com/ziadkadry99/agentgw/internal/vectordb"
	"github.com/ziadkadry99/agentgw/internal/webhooks"
)

type scriptedProvider struct {
	turn []llm.StreamChunk
}

func (p *scriptedProvider) Name() string { return "scripted" }
func (p *scriptedProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	out := make(chan llm.StreamChunk, len(p.turn))
	for _, c := range p.turn {
		out <- c
	}
	close(out)
	return out, nil
}

// stubEmbedder returns a fixed-length zero vector, enough to exercise
// ingest/search wiring without calling a real embedding API.
type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, 8)
	}
	return out, nil
}
func (stubEmbedder) Dimensions() int { return 8 }
func (stubEmbedder) Name() string    { return "stub" }

func newTestServer(t *testing.T, apiKey string) *Server {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	skillsDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(skillsDir, "helper.yaml"), []byte("name: helper\ndescription: a helper skill\nsystem_prompt: help out\n"), 0o644); err != nil {
		t.Fatalf("writing skill: %v", err)
	}
	loader := skills.NewLoader(skillsDir)
	if err := loader.LoadAll(nil); err != nil {
		t.Fatalf("loading skills: %v", err)
	}

	vector := vectordb.NewChromemStore(stubEmbedder{})

	svc := &service.Service{
		Config: &config.Config{
			LLM:     config.LLMConfig{Model: "test-model"},
			Agent:   config.AgentConfig{MaxIterations: 10, MaxOrchestrationDepth: 1},
			HTTP:    config.HTTPConfig{APIKey: apiKey},
			Storage: config.StorageConfig{VectorDir: t.TempDir()},
		},
		Store:    store.New(database),
		Skills:   loader,
		Tools:    tools.NewRegistry(),
		Provider: &scriptedProvider{turn: []llm.StreamChunk{{Kind: llm.ChunkTextDelta, Text: "hi"}, {Kind: llm.ChunkFinish, Reason: llm.FinishStop}}},
		Vector:   vector,
		Webhooks: webhooks.NewDispatcher(),
	}
	svc.Scheduler = scheduler.New(func(ctx context.Context, skillName, message string) (string, error) {
		_, result, err := svc.Run(ctx, "", skillName, message)
		return result, err
	}, t.TempDir())

	return New(Config{Port: 0, APIKey: apiKey}, svc)
}

func doRequest(s *Server, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthIsAlwaysPublic(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := doRequest(s, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAPIRoutesRejectMissingBearerToken(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := doRequest(s, http.MethodGet, "/api/skills", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAPIRoutesAcceptValidBearerToken(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := doRequest(s, http.MethodGet, "/api/skills", nil, "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
}

func TestAPIRoutesOpenWhenNoAPIKeyConfigured(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(s, http.MethodGet, "/api/skills", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleRunReturnsSkillResult(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(s, http.MethodPost, "/api/run", chatRequest{SkillName: "helper", Message: "hello"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out["result"] != "hi" {
		t.Fatalf("result = %q, want %q", out["result"], "hi")
	}
	if out["session_id"] == "" {
		t.Fatal("expected a non-empty session_id in the response")
	}
}

func TestHandleRunResumesGivenSession(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(s, http.MethodPost, "/api/run", chatRequest{SkillName: "helper", Message: "hello"}, "")
	var first map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	rec = doRequest(s, http.MethodPost, "/api/run", chatRequest{SkillName: "helper", Message: "hello again", SessionID: first["session_id"]}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var second map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if second["session_id"] != first["session_id"] {
		t.Fatalf("session_id = %q, want the resumed %q", second["session_id"], first["session_id"])
	}
}

func TestHandleRunUnknownSkillReturnsBadRequest(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(s, http.MethodPost, "/api/run", chatRequest{SkillName: "ghost", Message: "hello"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleChatStreamsSSE(t *testing.T) {
	s := newTestServer(t, "")
	body, _ := json.Marshal(chatRequest{SkillName: "helper", Message: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q, want text/event-stream", ct)
	}
	out := rec.Body.String()
	if !strings.Contains(out, "data: hi") {
		t.Fatalf("expected a text delta event, got: %s", out)
	}
	if !strings.Contains(out, "event: done") {
		t.Fatalf("expected a done event, got: %s", out)
	}
}

func TestHandleIngestAndListDocuments(t *testing.T) {
	s := newTestServer(t, "")

	rec := doRequest(s, http.MethodPost, "/api/ingest", ingestRequest{Text: "hello world", Source: "test.txt"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodGet, "/api/documents", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out["count"].(float64) < 1 {
		t.Fatalf("expected at least one document, got %+v", out)
	}
}

func TestHandleFeedbackRejectsInvalidValue(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(s, http.MethodPost, "/api/feedback", feedbackRequest{MessageID: "msg-1", Value: 5}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleListSkills(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(s, http.MethodGet, "/api/skills", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(out) != 1 || out[0]["name"] != "helper" {
		t.Fatalf("unexpected skills list: %+v", out)
	}
}

func TestHandleDaemonStatus(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(s, http.MethodGet, "/daemon/status", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
