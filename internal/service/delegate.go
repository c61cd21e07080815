package service

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/agentgw/internal/agent"
	"github.com/ziadkadry99/agentgw/internal/agentgwerr"
	"github.com/ziadkadry99/agentgw/internal/tools"
)

// DelegateArgs are the parameters of the delegate_to_agent tool.
type DelegateArgs struct {
	SkillName string `json:"skill_name" jsonschema:"required,description=Name of the skill to delegate the task to."`
	Task      string `json:"task" jsonschema:"required,description=The task for the sub-agent to perform."`
	Context   string `json:"context,omitempty" jsonschema:"description=Optional context prefixed to the task as the sub-agent's input."`
}

// registerDelegationTool wires delegate_to_agent against this Service,
// mirroring the Python original's setter-injection of the service into its
// delegation tool module: the tool needs to spin up a full nested Loop, so
// it is registered here rather than alongside the other stateless builtins.
func (s *Service) registerDelegationTool() error {
	return tools.Register(s.Tools, "delegate_to_agent",
		"Delegate a task to another skill's agent and return its final result.",
		func(ctx context.Context, args DelegateArgs) (any, error) {
			depth := agent.DepthFromContext(ctx)
			if depth+1 > s.Config.Agent.MaxOrchestrationDepth {
				return map[string]any{"error": agentgwerr.ErrDepthExceeded.Error(), "current_depth": depth}, nil
			}

			skill, ok := s.Skills.Get(args.SkillName)
			if !ok {
				return map[string]any{"error": fmt.Sprintf("unknown skill: %s", args.SkillName)}, nil
			}

			input := args.Task
			if args.Context != "" {
				input = args.Context + "\n\n" + args.Task
			}

			sessionID, err := s.Store.CreateSession(ctx, skill.Name, "")
			if err != nil {
				return nil, fmt.Errorf("creating delegated session: %w", err)
			}

			loop := agent.NewLoop(skill, sessionID, s.Provider, s.Tools, s.Store, s.Vector, depth+1)
			result, err := loop.RunToCompletion(ctx, input)
			if err != nil {
				return map[string]any{"error": err.Error()}, nil
			}
			return map[string]any{"status": "ok", "skill": skill.Name, "result": result, "depth": depth + 1}, nil
		})
}
