// Package agent implements the ReAct-style orchestration loop: one Loop
// per in-flight request, assembling the provider prompt from a skill,
// its RAG context, few-shot examples and session history, streaming the
// response, and dispatching any tool calls the model emits.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ziadkadry99/agentgw/internal/agentgwerr"
	"github.com/ziadkadry99/agentgw/internal/llm"
	"github.com/ziadkadry99/agentgw/internal/skills"
	"github.com/ziadkadry99/agentgw/internal/store"
	"github.com/ziadkadry99/agentgw/internal/tools"
	"github.com/ziadkadry99/agentgw/internal/vectordb"
)

const defaultMaxIterations = 10

// Loop is a transient coordinator for one in-flight request. It owns no
// persistent state of its own; everything it reads or writes lives in the
// Store, VectorStore, and ToolRegistry it was constructed with.
type Loop struct {
	Skill       skills.Skill
	SessionID   string
	Provider    llm.Provider
	Tools       *tools.Registry
	Store       *store.Store
	VectorStore vectordb.Store
	Depth       int
}

// NewLoop constructs a Loop for one request.
func NewLoop(skill skills.Skill, sessionID string, provider llm.Provider, registry *tools.Registry, messageStore *store.Store, vectorStore vectordb.Store, depth int) *Loop {
	return &Loop{
		Skill:       skill,
		SessionID:   sessionID,
		Provider:    provider,
		Tools:       registry,
		Store:       messageStore,
		VectorStore: vectorStore,
		Depth:       depth,
	}
}

// Run executes the agent loop and returns a channel of Events. The
// channel is closed when the turn completes, is cancelled, or a fatal
// persistence error occurs. The ambient depth is established on ctx for
// the duration of the run; delegation tools invoked from this loop
// observe it via DepthFromContext.
func (l *Loop) Run(ctx context.Context, userInput string) (<-chan Event, error) {
	ctx = WithDepth(ctx, l.Depth)

	if _, err := l.Store.Append(ctx, l.SessionID, store.Message{Role: store.RoleUser, Content: userInput}); err != nil {
		return nil, fmt.Errorf("agent: persisting user message: %w", err)
	}

	out := make(chan Event)
	go l.run(ctx, out)
	return out, nil
}

// RunToCompletion drains Run's event channel and returns the final text.
func (l *Loop) RunToCompletion(ctx context.Context, userInput string) (string, error) {
	events, err := l.Run(ctx, userInput)
	if err != nil {
		return "", err
	}

	var final string
	for e := range events {
		switch e.Kind {
		case EventDone:
			final = e.Text
			if e.Err != nil {
				return final, e.Err
			}
		case EventCancelled:
			return final, fmt.Errorf("%w: %w", agentgwerr.ErrCancelled, ctx.Err())
		}
	}
	return final, nil
}

func (l *Loop) run(ctx context.Context, out chan<- Event) {
	defer close(out)

	maxIter := l.Skill.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	toolSchemas := toLLMToolSchemas(l.Tools.SchemaFor(l.Skill.Tools))

	for iteration := 0; iteration < maxIter; iteration++ {
		if ctx.Err() != nil {
			emit(ctx, out, Event{Kind: EventCancelled})
			return
		}

		messages, err := l.buildMessages(ctx)
		if err != nil {
			emit(ctx, out, Event{Kind: EventDone, Err: fmt.Errorf("agent: assembling prompt: %w", err)})
			return
		}

		req := llm.CompletionRequest{
			Model:       l.Skill.Model,
			Messages:    messages,
			Tools:       toolSchemas,
			MaxTokens:   0,
			Temperature: l.Skill.Temperature,
		}

		chunks, err := l.Provider.Stream(ctx, req)
		if err != nil {
			emit(ctx, out, Event{Kind: EventDone, Err: fmt.Errorf("agent: starting stream: %w", err)})
			return
		}

		var text strings.Builder
		var toolCalls []llm.ToolCall
		var reason llm.FinishReason
		var streamErr error
		cancelledMidStream := false

		for chunk := range chunks {
			if ctx.Err() != nil {
				cancelledMidStream = true
				continue
			}
			switch chunk.Kind {
			case llm.ChunkTextDelta:
				text.WriteString(chunk.Text)
				emit(ctx, out, Event{Kind: EventTextDelta, Text: chunk.Text})
			case llm.ChunkFinish:
				reason = chunk.Reason
				streamErr = chunk.Err
				if chunk.Reason == llm.FinishToolCalls {
					toolCalls = chunk.ToolCalls
				}
			}
		}

		if cancelledMidStream {
			emit(ctx, out, Event{Kind: EventCancelled})
			return
		}

		switch reason {
		case llm.FinishStop:
			if err := l.persistAssistant(ctx, text.String(), nil); err != nil {
				emit(ctx, out, Event{Kind: EventDone, Err: err})
				return
			}
			emit(ctx, out, Event{Kind: EventDone, Text: text.String()})
			return

		case llm.FinishToolCalls:
			if err := l.persistAssistant(ctx, text.String(), toolCalls); err != nil {
				emit(ctx, out, Event{Kind: EventDone, Err: err})
				return
			}

			if !l.dispatchToolCalls(ctx, out, toolCalls) {
				emit(ctx, out, Event{Kind: EventCancelled})
				return
			}
			// Continue to the next iteration with the tool results appended.

		case llm.FinishLength:
			if err := l.persistAssistant(ctx, text.String(), nil); err != nil {
				emit(ctx, out, Event{Kind: EventDone, Err: err})
				return
			}
			emit(ctx, out, Event{Kind: EventDone, Text: text.String() + "[truncated]"})
			return

		case llm.FinishError:
			// Partial text is kept and tagged rather than discarded, so a
			// mid-stream provider failure still leaves something readable
			// in session history.
			degraded := text.String() + fmt.Sprintf("\n[provider error: %v]", streamErr)
			if err := l.persistAssistant(ctx, degraded, nil); err != nil {
				emit(ctx, out, Event{Kind: EventDone, Err: err})
				return
			}
			emit(ctx, out, Event{Kind: EventDone, Text: degraded, Err: streamErr})
			return

		default:
			// An empty/unknown finish reason with no tool calls behaves like stop.
			if err := l.persistAssistant(ctx, text.String(), nil); err != nil {
				emit(ctx, out, Event{Kind: EventDone, Err: err})
				return
			}
			emit(ctx, out, Event{Kind: EventDone, Text: text.String()})
			return
		}
	}

	const overflow = "maximum iterations reached"
	if err := l.persistAssistant(ctx, overflow, nil); err != nil {
		emit(ctx, out, Event{Kind: EventDone, Err: err})
		return
	}
	emit(ctx, out, Event{Kind: EventDone, Text: overflow})
}

// dispatchToolCalls invokes each tool call sequentially in provider-emitted
// order; tool calls within one turn never run concurrently. Returns
// false if cancellation was observed before a tool call could be
// dispatched, in which case the caller must not persist anything further.
func (l *Loop) dispatchToolCalls(ctx context.Context, out chan<- Event, calls []llm.ToolCall) bool {
	for _, tc := range calls {
		if ctx.Err() != nil {
			return false
		}

		var result string
		if !l.Skill.HasTool(tc.Name) {
			result = fmt.Sprintf(`{"error":"tool %q is not permitted for this skill"}`, tc.Name)
		} else {
			result = l.Tools.Invoke(ctx, tc.Name, json.RawMessage(tc.Arguments))
		}

		if _, err := l.Store.Append(ctx, l.SessionID, store.Message{
			Role:       store.RoleTool,
			Content:    result,
			ToolCallID: tc.ID,
		}); err != nil {
			// Persistence failures are fatal to the request.
			emit(ctx, out, Event{Kind: EventDone, Err: fmt.Errorf("agent: persisting tool result: %w", err)})
			return false
		}

		emit(ctx, out, Event{
			Kind:       EventToolCall,
			ToolName:   tc.Name,
			ToolCallID: tc.ID,
			ToolArgs:   tc.Arguments,
			ToolResult: result,
		})
	}
	return true
}

func (l *Loop) persistAssistant(ctx context.Context, content string, toolCalls []llm.ToolCall) error {
	var storedCalls []store.ToolCall
	for _, tc := range toolCalls {
		storedCalls = append(storedCalls, store.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	_, err := l.Store.Append(ctx, l.SessionID, store.Message{
		Role:      store.RoleAssistant,
		Content:   content,
		ToolCalls: storedCalls,
	})
	return err
}

// buildMessages assembles the provider-bound message sequence: system
// prompt, optional RAG context, few-shot examples, then the full ordered
// session history (which already includes the new user message, since
// Run persists it before the iteration loop starts).
func (l *Loop) buildMessages(ctx context.Context) ([]llm.Message, error) {
	history, err := l.Store.List(ctx, l.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+4)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: l.Skill.SystemPrompt})

	if rag := l.Skill.RAGContext; rag != nil && rag.Enabled && l.VectorStore != nil {
		if block := l.retrieveContext(ctx, rag, history); block != "" {
			messages = append(messages, llm.Message{
				Role:    llm.RoleSystem,
				Content: "Retrieved context:\n" + block,
			})
		}
	}

	for _, ex := range l.Skill.Examples {
		if ex.User != "" {
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: ex.User})
		}
		if ex.Assistant != "" {
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: ex.Assistant})
		}
	}

	for _, m := range history {
		messages = append(messages, toLLMMessage(m))
	}

	return messages, nil
}

func (l *Loop) retrieveContext(ctx context.Context, rag *skills.RAGContext, history []store.Message) string {
	query := lastUserContent(history)
	if query == "" {
		return ""
	}

	ragSkills := rag.Skills
	if len(ragSkills) == 0 {
		ragSkills = []string{l.Skill.Name}
	}
	k := rag.TopK
	if k <= 0 {
		k = 3
	}

	results, err := l.VectorStore.Search(ctx, rag.Collection, query, ragSkills, rag.Tags, k)
	if err != nil || len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(r.Chunk.Text)
	}
	return sb.String()
}

func lastUserContent(history []store.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == store.RoleUser && history[i].Content != "" {
			return history[i].Content
		}
	}
	return ""
}

func toLLMMessage(m store.Message) llm.Message {
	lm := llm.Message{Role: llm.Role(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
	for _, tc := range m.ToolCalls {
		lm.ToolCalls = append(lm.ToolCalls, llm.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	return lm
}

func toLLMToolSchemas(specs []tools.Spec) []llm.ToolSchema {
	if len(specs) == 0 {
		return nil
	}
	out := make([]llm.ToolSchema, 0, len(specs))
	for _, s := range specs {
		out = append(out, llm.ToolSchema{Name: s.Name, Description: s.Description, Parameters: s.Schema})
	}
	return out
}

func emit(ctx context.Context, out chan<- Event, e Event) bool {
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
