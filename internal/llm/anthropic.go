package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicProvider implements Provider using the Anthropic Messages API's
// server-sent-event stream, via direct HTTP since no Anthropic SDK is
// available in the dependency corpus this daemon draws from.
type AnthropicProvider struct {
	apiKey string
	model  string
	client *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{apiKey: apiKey, model: model, client: &http.Client{}}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
	Stream      bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string                `json:"role"`
	Content []anthropicContentBlk `json:"content"`
}

// anthropicContentBlk covers the block shapes this provider emits: plain
// text, an assistant tool_use request, and a user tool_result reply.
type anthropicContentBlk struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Input     any    `json:"input,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// anthropicSSEEvent covers the union of streaming event payloads this
// provider consumes: message_start/delta/stop, content_block_start/
// delta/stop, and error.
type anthropicSSEEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Message struct {
		Usage anthropicUsage `json:"usage"`
	} `json:"message"`
	Usage anthropicUsage  `json:"usage"`
	Error *anthropicError `json:"error"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (p *AnthropicProvider) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	apiReq := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		System:      systemPromptOf(req.Messages),
		Messages:    toAnthropicMessages(req.Messages),
		Tools:       toAnthropicTools(req.Tools),
		Stream:      true,
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshalling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Accept", "text/event-stream")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: request failed: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		var apiErr struct {
			Error anthropicError `json:"error"`
		}
		json.NewDecoder(httpResp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("anthropic: status %d: %s", httpResp.StatusCode, apiErr.Error.Message)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer httpResp.Body.Close()

		acc := newToolCallAccumulator()
		blockKinds := map[int]string{}
		var usage Usage
		var finishReason FinishReason = FinishStop

		scanner := bufio.NewScanner(httpResp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")

			var ev anthropicSSEEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				continue
			}

			switch ev.Type {
			case "message_start":
				usage.InputTokens = ev.Message.Usage.InputTokens
			case "content_block_start":
				blockKinds[ev.Index] = ev.ContentBlock.Type
				if ev.ContentBlock.Type == "tool_use" {
					acc.setID(ev.Index, ev.ContentBlock.ID)
					acc.setName(ev.Index, ev.ContentBlock.Name)
				}
			case "content_block_delta":
				switch ev.Delta.Type {
				case "text_delta":
					if !emit(ctx, out, StreamChunk{Kind: ChunkTextDelta, Text: ev.Delta.Text}) {
						return
					}
				case "input_json_delta":
					acc.appendArgs(ev.Index, ev.Delta.PartialJSON)
					if !emit(ctx, out, StreamChunk{
						Kind: ChunkToolCallDelta, Index: ev.Index, ArgsFragment: ev.Delta.PartialJSON,
					}) {
						return
					}
				}
			case "message_delta":
				usage.OutputTokens = ev.Usage.OutputTokens
				finishReason = mapAnthropicStopReason(ev.Delta.StopReason)
			case "error":
				if ev.Error != nil {
					emit(ctx, out, StreamChunk{Kind: ChunkFinish, Reason: FinishError, Err: fmt.Errorf("anthropic: %s: %s", ev.Error.Type, ev.Error.Message)})
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			emit(ctx, out, StreamChunk{Kind: ChunkFinish, Reason: FinishError, Err: fmt.Errorf("anthropic: reading stream: %w", err)})
			return
		}

		finish := StreamChunk{Kind: ChunkFinish, Reason: finishReason, Usage: usage}
		if finishReason == FinishToolCalls {
			calls, err := acc.finalize()
			if err != nil {
				emit(ctx, out, StreamChunk{Kind: ChunkFinish, Reason: FinishError, Err: fmt.Errorf("anthropic: malformed tool call arguments: %w", err)})
				return
			}
			finish.ToolCalls = calls
		}
		emit(ctx, out, finish)
	}()

	return out, nil
}

func systemPromptOf(messages []Message) string {
	var sb strings.Builder
	for _, m := range messages {
		if m.Role != RoleSystem {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}

func toAnthropicMessages(messages []Message) []anthropicMessage {
	var out []anthropicMessage
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			continue
		case RoleUser:
			out = append(out, anthropicMessage{Role: "user", Content: []anthropicContentBlk{{Type: "text", Text: m.Content}}})
		case RoleAssistant:
			blocks := []anthropicContentBlk{}
			if m.Content != "" {
				blocks = append(blocks, anthropicContentBlk{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var input any
				json.Unmarshal([]byte(tc.Arguments), &input)
				blocks = append(blocks, anthropicContentBlk{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})
		case RoleTool:
			out = append(out, anthropicMessage{Role: "user", Content: []anthropicContentBlk{{
				Type: "tool_result", ToolUseID: m.ToolCallID, Content: m.Content,
			}}})
		}
	}
	return out
}

func toAnthropicTools(tools []ToolSchema) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropicTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}
	return out
}

func mapAnthropicStopReason(r string) FinishReason {
	switch r {
	case "end_turn", "stop_sequence":
		return FinishStop
	case "max_tokens":
		return FinishLength
	case "tool_use":
		return FinishToolCalls
	default:
		return FinishStop
	}
}
