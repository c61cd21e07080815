// Package service wires every daemon component together into a single
// long-lived object shared by the HTTP façade, CLI, scheduler, and
// delegation tool calls.
package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/agentgw/internal/agent"
	"github.com/ziadkadry99/agentgw/internal/agentgwerr"
	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/db"
	"github.com/ziadkadry99/agentgw/internal/embeddings"
	"github.com/ziadkadry99/agentgw/internal/llm"
	"github.com/ziadkadry99/agentgw/internal/scheduler"
	"github.com/ziadkadry99/agentgw/internal/skills"
	"github.com/ziadkadry99/agentgw/internal/store"
	"github.com/ziadkadry99/agentgw/internal/tools"
	"github.com/ziadkadry99/agentgw/internal/vectordb"
	"github.com/ziadkadry99/agentgw/internal/webhooks"
)

// Service is the process-wide singleton binding every shared component:
// ToolRegistry, SkillLoader, MessageStore, VectorStore, LLMProvider,
// Scheduler and WebhookDispatcher.
type Service struct {
	Config    *config.Config
	DB        *db.DB
	Store     *store.Store
	Skills    *skills.Loader
	Tools     *tools.Registry
	Provider  llm.Provider
	Vector    vectordb.Store
	Webhooks  *webhooks.Dispatcher
	Scheduler *scheduler.Scheduler

	sessionLocks sync.Map // sessionID -> *sync.Mutex
}

// New wires a Service from cfg: opens the database, loads skills, builds
// the LLM provider and vector store, registers every built-in and
// delegation tool, and loads scheduled jobs and webhook subscriptions.
// The scheduler is constructed but not started; call Start to begin
// evaluating cron expressions.
func New(cfg *config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w: %w", agentgwerr.ErrConfig, err)
	}

	database, err := db.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w: %w", agentgwerr.ErrPersistence, err)
	}

	provider, err := llm.NewProvider(cfg.LLM.Provider, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg.Embedding.Provider, cfg.Embedding.Model, "")
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	vector := vectordb.NewChromemStore(embedder)
	if err := vector.Load(context.Background(), cfg.Storage.VectorDir); err != nil {
		log.Printf("service: starting with an empty vector store: %v", err)
	}

	registry := tools.NewRegistry()
	if err := tools.RegisterFileTools(registry, "."); err != nil {
		return nil, fmt.Errorf("registering file tools: %w", err)
	}
	if err := tools.RegisterSQLTool(registry, database.DB); err != nil {
		return nil, fmt.Errorf("registering sql tool: %w", err)
	}
	if err := tools.RegisterKnowledgeBaseTools(registry, vectorKBAdapter{vector}, vectorKBAdapter{vector}); err != nil {
		return nil, fmt.Errorf("registering knowledge base tools: %w", err)
	}
	if err := tools.RegisterHTTPTool(registry); err != nil {
		return nil, fmt.Errorf("registering http tool: %w", err)
	}

	loader := skills.NewLoader(cfg.SkillsDir)
	if err := loader.LoadAll(knownToolNames(registry)); err != nil {
		return nil, fmt.Errorf("loading skills: %w", err)
	}

	s := &Service{
		Config:   cfg,
		DB:       database,
		Store:    store.New(database),
		Skills:   loader,
		Tools:    registry,
		Provider: provider,
		Vector:   vector,
		Webhooks: webhooks.NewDispatcher(),
	}

	if err := s.registerDelegationTool(); err != nil {
		return nil, fmt.Errorf("registering delegation tool: %w", err)
	}

	s.Scheduler = scheduler.New(func(ctx context.Context, skillName, message string) (string, error) {
		_, result, err := s.Run(ctx, "", skillName, message)
		return result, err
	}, cfg.Storage.LogDir)
	if err := s.loadJobs(cfg.JobsDir); err != nil {
		log.Printf("service: %v", err)
	}
	if err := s.loadWebhooks(cfg.WebhooksDir); err != nil {
		log.Printf("service: %v", err)
	}

	return s, nil
}

// knownToolNames snapshots the registered tool names as the allow-set the
// skill loader validates skill.tools entries against. delegate_to_agent is
// not registered yet at this point in New, so it is added separately: the
// loader is invoked before registerDelegationTool runs, matching the
// Python original's ordering (skills load before the service injects its
// own delegation tool into the shared registry).
func knownToolNames(r *tools.Registry) map[string]bool {
	names := map[string]bool{"delegate_to_agent": true}
	for _, n := range r.Names() {
		names[n] = true
	}
	return names
}

// Start begins the scheduler's evaluation loop.
func (s *Service) Start(ctx context.Context) {
	s.Scheduler.Start(ctx)
}

// Shutdown stops the scheduler and persists the vector store.
func (s *Service) Shutdown(ctx context.Context) error {
	s.Scheduler.Stop()
	if err := s.Vector.Persist(ctx, s.Config.Storage.VectorDir); err != nil {
		log.Printf("service: persisting vector store on shutdown: %v", err)
	}
	return s.DB.Close()
}

// Chat starts or resumes a session for skillName, streaming events as the
// turn progresses. If sessionID is empty a new session is created. Only
// one Chat/Run call advances a given session at a time; a concurrent call
// against the same session blocks until the first completes, per the
// daemon's per-session mutual exclusion guarantee.
func (s *Service) Chat(ctx context.Context, sessionID, skillName, message string) (<-chan agent.Event, error) {
	skill, ok := s.Skills.Get(skillName)
	if !ok {
		return nil, fmt.Errorf("unknown skill: %s", skillName)
	}

	if sessionID == "" {
		id, err := s.Store.CreateSession(ctx, skill.Name, "")
		if err != nil {
			return nil, fmt.Errorf("creating session: %w: %w", agentgwerr.ErrPersistence, err)
		}
		sessionID = id
		s.Webhooks.Emit(webhooks.EventSessionCreated, map[string]string{"session_id": sessionID, "skill": skill.Name})
	}

	unlock := s.lockSession(sessionID)

	loop := agent.NewLoop(skill, sessionID, s.Provider, s.Tools, s.Store, s.Vector, 0)
	upstream, err := loop.Run(ctx, message)
	if err != nil {
		unlock()
		return nil, err
	}

	s.Webhooks.Emit(webhooks.EventAgentStarted, map[string]string{"session_id": sessionID, "skill": skill.Name})

	out := make(chan agent.Event)
	go func() {
		defer close(out)
		defer unlock()
		for e := range upstream {
			out <- e
			switch e.Kind {
			case agent.EventDone:
				if e.Err != nil {
					s.Webhooks.Emit(webhooks.EventAgentFailed, map[string]string{"session_id": sessionID, "skill": skill.Name, "error": e.Err.Error()})
				} else {
					s.Webhooks.Emit(webhooks.EventAgentCompleted, map[string]string{"session_id": sessionID, "skill": skill.Name})
				}
			case agent.EventToolCall:
				s.Webhooks.Emit(webhooks.EventToolExecuted, map[string]string{"session_id": sessionID, "tool": e.ToolName})
			}
		}
	}()

	return out, nil
}

// Run executes skillName against message to completion, resuming sessionID
// if it is non-empty or creating a fresh session otherwise, and returns the
// session id used together with the final text.
func (s *Service) Run(ctx context.Context, sessionID, skillName, message string) (string, string, error) {
	skill, ok := s.Skills.Get(skillName)
	if !ok {
		return "", "", fmt.Errorf("unknown skill: %s", skillName)
	}

	if sessionID == "" {
		id, err := s.Store.CreateSession(ctx, skill.Name, "")
		if err != nil {
			return "", "", fmt.Errorf("creating session: %w: %w", agentgwerr.ErrPersistence, err)
		}
		sessionID = id
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	loop := agent.NewLoop(skill, sessionID, s.Provider, s.Tools, s.Store, s.Vector, 0)
	result, err := loop.RunToCompletion(ctx, message)
	if err != nil {
		return sessionID, "", err
	}
	return sessionID, result, nil
}

// Ingest chunks and embeds text into the named collection.
func (s *Service) Ingest(ctx context.Context, collection, source, text string, skillTags, tags []string) (int, error) {
	n, err := s.Vector.Ingest(ctx, collection, source, text, skillTags, tags)
	if err != nil {
		return 0, err
	}
	if err := s.Vector.Persist(ctx, s.Config.Storage.VectorDir); err != nil {
		log.Printf("service: persisting vector store after ingest: %v", err)
	}
	return n, nil
}

// Status summarizes the daemon's current state for the /daemon/status route.
type Status struct {
	Skills          int `json:"skills"`
	RegisteredTools int `json:"registered_tools"`
	ScheduledJobs   int `json:"scheduled_jobs"`
	Subscriptions   int `json:"webhook_subscriptions"`
}

// StatusSnapshot reports a snapshot of the daemon's loaded components.
func (s *Service) StatusSnapshot() Status {
	return Status{
		Skills:          len(s.Skills.List()),
		RegisteredTools: len(s.Tools.Names()),
		ScheduledJobs:   len(s.Scheduler.Jobs()),
		Subscriptions:   len(s.Webhooks.Subscriptions()),
	}
}

// lockSession acquires the per-session mutex for sessionID, returning a
// function that releases it. Locks are created lazily and never removed,
// since the number of distinct sessions over a daemon's lifetime is
// bounded by usage, not by an unbounded external input.
func (s *Service) lockSession(sessionID string) func() {
	value, _ := s.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

type jobsFile struct {
	Jobs []scheduler.Job `yaml:"jobs"`
}

func (s *Service) loadJobs(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading jobs file: %w", err)
	}
	var f jobsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing jobs file: %w", err)
	}
	for _, job := range f.Jobs {
		if err := s.Scheduler.AddJob(job); err != nil {
			log.Printf("service: skipping job %q: %v", job.Name, err)
		}
	}
	return nil
}

type webhooksFile struct {
	Webhooks []subscriptionSpec `yaml:"webhooks"`
}

type subscriptionSpec struct {
	Name    string   `yaml:"name"`
	URL     string   `yaml:"url"`
	Events  []string `yaml:"events"`
	Secret  string   `yaml:"secret"`
	Enabled bool     `yaml:"enabled"`
}

func (s *Service) loadWebhooks(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading webhooks file: %w", err)
	}
	var f webhooksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing webhooks file: %w", err)
	}
	for _, spec := range f.Webhooks {
		events := map[webhooks.EventKind]bool{}
		for _, e := range spec.Events {
			events[webhooks.EventKind(e)] = true
		}
		s.Webhooks.Register(webhooks.Subscription{
			Name:    spec.Name,
			URL:     spec.URL,
			Events:  events,
			Secret:  spec.Secret,
			Enabled: spec.Enabled,
		})
	}
	return nil
}
