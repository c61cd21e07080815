package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ziadkadry99/agentgw/internal/llm"
	"github.com/ziadkadry99/agentgw/internal/skills"
)

const plannerSystemPromptTemplate = `You are an intelligent task router. Your job is to analyze the user's message and determine which skill is best suited to handle it.

Available skills:
%s

Based on the user's message, respond with a JSON object:
{
  "skill_name": "<skill_name>",
  "reason": "<brief explanation of why this skill was chosen>"
}

If no skill is a good match, respond with:
{"skill_name": null, "reason": "No matching skill found"}

Respond ONLY with the JSON object, no additional text.`

// RouteResult is the planner's routing decision for one message.
type RouteResult struct {
	SkillName string `json:"skill_name"`
	Reason    string `json:"reason"`
}

// Route asks the configured LLM provider which registered skill is best
// suited to handle message, without running that skill.
func (s *Service) Route(ctx context.Context, message string) (RouteResult, error) {
	systemPrompt := fmt.Sprintf(plannerSystemPromptTemplate, describeSkills(s.Skills.List()))

	req := llm.CompletionRequest{
		Model:       s.Config.LLM.Model,
		Temperature: 0.1,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: message},
		},
	}

	stream, err := s.Provider.Stream(ctx, req)
	if err != nil {
		return RouteResult{}, fmt.Errorf("streaming planner completion: %w", err)
	}

	var text strings.Builder
	for chunk := range stream {
		switch chunk.Kind {
		case llm.ChunkTextDelta:
			text.WriteString(chunk.Text)
		case llm.ChunkFinish:
			if chunk.Reason == llm.FinishError {
				return RouteResult{}, fmt.Errorf("planner stream error: %w", chunk.Err)
			}
		}
	}

	var result RouteResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(text.String())), &result); err != nil {
		return RouteResult{Reason: fmt.Sprintf("could not parse planner response: %s", text.String())}, nil
	}
	return result, nil
}

func describeSkills(list []skills.Skill) string {
	var b strings.Builder
	for _, s := range list {
		tags := "general"
		if len(s.Tags) > 0 {
			tags = strings.Join(s.Tags, ", ")
		}
		fmt.Fprintf(&b, "- %s: %s (tags: %s)\n", s.Name, s.Description, tags)
	}
	return b.String()
}
