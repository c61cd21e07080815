package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ziadkadry99/agentgw/internal/agent"
	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/db"
	"github.com/ziadkadry99/agentgw/internal/llm"
	"github.com/ziadkadry99/agentgw/internal/scheduler"
	"github.com/ziadkadry99/agentgw/internal/skills"
	"github.com/ziadkadry99/agentgw/internal/store"
	"github.com/ziadkadry99/agentgw/internal/tools"
	"github.com/ziadkadry99/agentgw/internal/vectordb"
	"github.com/ziadkadry99/agentgw/internal/webhooks"
)

// scriptedProvider replays one fixed turn per Stream call; later calls
// repeat the final turn, enough for a delegated sub-run's single turn.
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

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	skillsDir := t.TempDir()
	loader := skills.NewLoader(skillsDir)
	if err := loader.LoadAll(map[string]bool{"delegate_to_agent": true}); err != nil {
		t.Fatalf("loading empty skills dir: %v", err)
	}

	s := &Service{
		Config: &config.Config{
			Agent: config.AgentConfig{MaxIterations: 10, MaxOrchestrationDepth: 1},
		},
		Store:    store.New(database),
		Skills:   loader,
		Tools:    tools.NewRegistry(),
		Provider: &scriptedProvider{turn: []llm.StreamChunk{{Kind: llm.ChunkTextDelta, Text: "ok"}, {Kind: llm.ChunkFinish, Reason: llm.FinishStop}}},
		Vector:   nil,
		Webhooks: webhooks.NewDispatcher(),
	}
	if err := s.registerDelegationTool(); err != nil {
		t.Fatalf("registering delegation tool: %v", err)
	}
	return s
}

func mustWriteSkill(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		t.Fatalf("writing skill file: %v", err)
	}
}

func TestServiceChatCreatesSessionAndPersists(t *testing.T) {
	s := newTestService(t)

	skillsDir := t.TempDir()
	mustWriteSkill(t, skillsDir, "chat.yaml", "name: chat\ndescription: test\nsystem_prompt: be helpful\n")
	loader := skills.NewLoader(skillsDir)
	if err := loader.LoadAll(nil); err != nil {
		t.Fatalf("loading skills: %v", err)
	}
	s.Skills = loader

	events, err := s.Chat(context.Background(), "", "chat", "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	var final string
	for e := range events {
		if e.Kind == agent.EventDone {
			final = e.Text
		}
	}
	if final != "ok" {
		t.Fatalf("final = %q, want %q", final, "ok")
	}
}

func TestServiceChatUnknownSkill(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Chat(context.Background(), "", "nonexistent", "hi"); err == nil {
		t.Fatal("expected an error for an unknown skill")
	}
}

func TestServiceRunCreatesSessionWhenNoneGiven(t *testing.T) {
	s := newTestService(t)
	skillsDir := t.TempDir()
	mustWriteSkill(t, skillsDir, "chat.yaml", "name: chat\ndescription: test\nsystem_prompt: be helpful\n")
	loader := skills.NewLoader(skillsDir)
	if err := loader.LoadAll(nil); err != nil {
		t.Fatalf("loading skills: %v", err)
	}
	s.Skills = loader

	sessionID, result, err := s.Run(context.Background(), "", "chat", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sessionID == "" {
		t.Fatal("expected a non-empty session id")
	}
	if result != "ok" {
		t.Fatalf("result = %q, want %q", result, "ok")
	}
}

func TestServiceRunResumesGivenSession(t *testing.T) {
	s := newTestService(t)
	skillsDir := t.TempDir()
	mustWriteSkill(t, skillsDir, "chat.yaml", "name: chat\ndescription: test\nsystem_prompt: be helpful\n")
	loader := skills.NewLoader(skillsDir)
	if err := loader.LoadAll(nil); err != nil {
		t.Fatalf("loading skills: %v", err)
	}
	s.Skills = loader

	first, _, err := s.Run(context.Background(), "", "chat", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	second, _, err := s.Run(context.Background(), first, "chat", "hello again")
	if err != nil {
		t.Fatalf("Run with given session: %v", err)
	}
	if second != first {
		t.Fatalf("session id = %q, want the resumed %q", second, first)
	}

	messages, err := s.Store.List(context.Background(), first)
	if err != nil {
		t.Fatalf("listing session messages: %v", err)
	}
	if len(messages) < 4 {
		t.Fatalf("expected both turns persisted to the same session, got %d messages", len(messages))
	}
}

func TestDelegateToAgentSucceeds(t *testing.T) {
	s := newTestService(t)

	skillsDir := t.TempDir()
	mustWriteSkill(t, skillsDir, "helper.yaml", "name: helper\ndescription: test\nsystem_prompt: help out\n")
	loader := skills.NewLoader(skillsDir)
	if err := loader.LoadAll(nil); err != nil {
		t.Fatalf("loading skills: %v", err)
	}
	s.Skills = loader

	argsJSON, _ := json.Marshal(DelegateArgs{SkillName: "helper", Task: "do the thing"})
	result := s.Tools.Invoke(context.Background(), "delegate_to_agent", argsJSON)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(result), &decoded); err != nil {
		t.Fatalf("decoding delegate result: %v", err)
	}
	if decoded["status"] != "ok" {
		t.Fatalf("expected status ok, got %+v", decoded)
	}
	if decoded["result"] != "ok" {
		t.Fatalf("expected delegated result %q, got %+v", "ok", decoded)
	}
}

func TestDelegateToAgentRejectsUnknownSkill(t *testing.T) {
	s := newTestService(t)
	argsJSON, _ := json.Marshal(DelegateArgs{SkillName: "ghost", Task: "do the thing"})
	result := s.Tools.Invoke(context.Background(), "delegate_to_agent", argsJSON)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(result), &decoded); err != nil {
		t.Fatalf("decoding delegate result: %v", err)
	}
	if decoded["error"] == nil {
		t.Fatalf("expected an error field, got %+v", decoded)
	}
}

func TestDelegateToAgentDepthExceeded(t *testing.T) {
	s := newTestService(t)
	s.Config.Agent.MaxOrchestrationDepth = 0

	skillsDir := t.TempDir()
	mustWriteSkill(t, skillsDir, "helper.yaml", "name: helper\ndescription: test\nsystem_prompt: help out\n")
	loader := skills.NewLoader(skillsDir)
	if err := loader.LoadAll(nil); err != nil {
		t.Fatalf("loading skills: %v", err)
	}
	s.Skills = loader

	argsJSON, _ := json.Marshal(DelegateArgs{SkillName: "helper", Task: "do the thing"})
	result := s.Tools.Invoke(context.Background(), "delegate_to_agent", argsJSON)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(result), &decoded); err != nil {
		t.Fatalf("decoding delegate result: %v", err)
	}
	if decoded["error"] == nil {
		t.Fatalf("expected a depth-exceeded error, got %+v", decoded)
	}
	if _, ok := decoded["current_depth"]; !ok {
		t.Fatalf("expected current_depth in the error payload, got %+v", decoded)
	}
}

func TestStatusSnapshotReflectsWiring(t *testing.T) {
	s := newTestService(t)
	_ = tools.Register(s.Tools, "noop", "does nothing", func(ctx context.Context, args struct{}) (any, error) {
		return "ok", nil
	})
	s.Scheduler = scheduler.New(nil, "") // StatusSnapshot only needs a non-running scheduler.

	snap := s.StatusSnapshot()
	if snap.RegisteredTools < 2 {
		t.Fatal("expected at least the delegation tool and noop to be registered")
	}
}

func TestVectorKBAdapterTranslatesTypes(t *testing.T) {
	fv := &stubVectorStore{
		searchResults: []vectordb.SearchResult{{Chunk: vectordb.Chunk{Source: "doc.md", Text: "hello"}, Similarity: 0.5}},
		listResults:   []vectordb.ChunkSummary{{ID: "1", Source: "doc.md", Preview: "hello..."}},
	}
	adapter := vectorKBAdapter{store: fv}

	results, err := adapter.Search(context.Background(), "default", "hi", nil, nil, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Source != "doc.md" || results[0].Score != 0.5 {
		t.Fatalf("unexpected search results: %+v", results)
	}

	summaries, err := adapter.List(context.Background(), "default", nil, "", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != "1" {
		t.Fatalf("unexpected list results: %+v", summaries)
	}
}

type stubVectorStore struct {
	searchResults []vectordb.SearchResult
	listResults   []vectordb.ChunkSummary
}

func (s *stubVectorStore) Ingest(ctx context.Context, collection, source, text string, skills, tags []string) (int, error) {
	return 0, nil
}
func (s *stubVectorStore) Search(ctx context.Context, collection, query string, skills, tags []string, k int) ([]vectordb.SearchResult, error) {
	return s.searchResults, nil
}
func (s *stubVectorStore) List(ctx context.Context, collection string, skills []string, sourceSubstring string, limit int) ([]vectordb.ChunkSummary, error) {
	return s.listResults, nil
}
func (s *stubVectorStore) Delete(ctx context.Context, collection string, ids []string) (int, error) {
	return 0, nil
}
func (s *stubVectorStore) DeleteBySource(ctx context.Context, collection, source string) (int, error) {
	return 0, nil
}
func (s *stubVectorStore) Persist(ctx context.Context, dir string) error { return nil }
func (s *stubVectorStore) Load(ctx context.Context, dir string) error   { return nil }
func (s *stubVectorStore) Count(collection string) int                  { return 0 }
