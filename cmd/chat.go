package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agentgw/internal/agent"
	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/service"
)

var chatSkillFlag string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session with a skill",
	Long:  `Loads the daemon in-process and opens a REPL against one skill, streaming assistant text as it arrives.`,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSkillFlag, "skill", "", "skill to chat with (prompts interactively if omitted)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	svc, err := service.New(cfg)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer svc.Shutdown(ctx)

	skillName := chatSkillFlag
	if skillName == "" {
		skillName, err = pickSkill(svc)
		if err != nil {
			return err
		}
	} else if _, ok := svc.Skills.Get(skillName); !ok {
		return fmt.Errorf("unknown skill: %s", skillName)
	}

	fmt.Printf("Chatting with %q. Type 'exit' or Ctrl-D to quit.\n\n", skillName)

	var sessionID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := scanner.Text()
		if line == "exit" || line == "quit" {
			return nil
		}
		if line == "" {
			continue
		}

		events, err := svc.Chat(ctx, sessionID, skillName, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		for e := range events {
			switch e.Kind {
			case agent.EventTextDelta:
				fmt.Print(e.Text)
			case agent.EventToolCall:
				fmt.Fprintf(os.Stderr, "\n[tool: %s]\n", e.ToolName)
			case agent.EventDone:
				fmt.Println()
				if e.Err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", e.Err)
				}
			}
		}
	}
}

func pickSkill(svc *service.Service) (string, error) {
	list := svc.Skills.List()
	if len(list) == 0 {
		return "", fmt.Errorf("no skills loaded")
	}
	names := make([]string, len(list))
	for i, sk := range list {
		names[i] = fmt.Sprintf("%s — %s", sk.Name, sk.Description)
	}

	prompt := promptui.Select{Label: "Select a skill", Items: names}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("skill selection cancelled: %w", err)
	}
	return list[idx].Name, nil
}
