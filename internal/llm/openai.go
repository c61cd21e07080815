package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using the OpenAI Chat Completions
// streaming API. It also backs XAIProvider, since xAI's Grok models are
// wire-compatible with the OpenAI API and differ only in base URL.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIProvider creates a provider against the public OpenAI API.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model, name: "openai"}
}

// NewXAIProvider creates a provider against xAI's OpenAI-compatible API.
func NewXAIProvider(apiKey, model string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = "https://api.x.ai/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg), model: model, name: "xai"}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	apiReq := openai.ChatCompletionRequest{
		Model:         model,
		Messages:      toOpenAIMessages(req.Messages),
		MaxTokens:     maxTokens,
		Temperature:   float32(req.Temperature),
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
		Tools:         toOpenAITools(req.Tools),
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("%s: starting stream: %w", p.name, err)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		acc := newToolCallAccumulator()
		var usage Usage
		var finishReason FinishReason

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				emit(ctx, out, StreamChunk{Kind: ChunkFinish, Reason: FinishError, Err: fmt.Errorf("%s: stream error: %w", p.name, err)})
				return
			}

			if resp.Usage != nil {
				usage = Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
			}

			for _, choice := range resp.Choices {
				if choice.Delta.Content != "" {
					if !emit(ctx, out, StreamChunk{Kind: ChunkTextDelta, Text: choice.Delta.Content}) {
						return
					}
				}
				for _, tc := range choice.Delta.ToolCalls {
					idx := 0
					if tc.Index != nil {
						idx = *tc.Index
					}
					if tc.ID != "" {
						acc.setID(idx, tc.ID)
					}
					name := tc.Function.Name
					args := tc.Function.Arguments
					if name != "" {
						acc.setName(idx, name)
					}
					acc.appendArgs(idx, args)
					if !emit(ctx, out, StreamChunk{Kind: ChunkToolCallDelta, Index: idx, Name: name, ArgsFragment: args}) {
						return
					}
				}
				if choice.FinishReason != "" {
					finishReason = mapOpenAIFinishReason(choice.FinishReason)
				}
			}
		}

		finish := StreamChunk{Kind: ChunkFinish, Reason: finishReason, Usage: usage}
		if finishReason == FinishToolCalls {
			calls, err := acc.finalize()
			if err != nil {
				emit(ctx, out, StreamChunk{Kind: ChunkFinish, Reason: FinishError, Err: fmt.Errorf("%s: malformed tool call arguments: %w", p.name, err)})
				return
			}
			finish.ToolCalls = calls
		}
		emit(ctx, out, finish)
	}()

	return out, nil
}

func emit(ctx context.Context, out chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		m := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, m)
	}
	return out
}

func toOpenAITools(tools []ToolSchema) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func mapOpenAIFinishReason(r openai.FinishReason) FinishReason {
	switch r {
	case openai.FinishReasonStop:
		return FinishStop
	case openai.FinishReasonLength:
		return FinishLength
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return FinishToolCalls
	default:
		return FinishStop
	}
}

// toolCallAccumulator reconstructs complete (id, name, arguments) tuples
// from possibly-fragmented streaming deltas, keyed by parallel-call index.
type toolCallAccumulator struct {
	order []int
	ids   map[int]string
	names map[int]string
	args  map[int]*strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{
		ids:   map[int]string{},
		names: map[int]string{},
		args:  map[int]*strings.Builder{},
	}
}

func (a *toolCallAccumulator) ensure(idx int) {
	if _, ok := a.args[idx]; !ok {
		a.order = append(a.order, idx)
		a.args[idx] = &strings.Builder{}
	}
}

func (a *toolCallAccumulator) setID(idx int, id string) {
	a.ensure(idx)
	a.ids[idx] = id
}

func (a *toolCallAccumulator) setName(idx int, name string) {
	a.ensure(idx)
	a.names[idx] = name
}

func (a *toolCallAccumulator) appendArgs(idx int, fragment string) {
	a.ensure(idx)
	a.args[idx].WriteString(fragment)
}

func (a *toolCallAccumulator) finalize() ([]ToolCall, error) {
	calls := make([]ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		argsText := a.args[idx].String()
		if argsText == "" {
			argsText = "{}"
		}
		if !json.Valid([]byte(argsText)) {
			return nil, fmt.Errorf("invalid JSON in tool call arguments for %q: %s", a.names[idx], argsText)
		}
		calls = append(calls, ToolCall{ID: a.ids[idx], Name: a.names[idx], Arguments: argsText})
	}
	return calls, nil
}
