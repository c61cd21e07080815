package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/service"
	"github.com/ziadkadry99/agentgw/internal/store"
)

var sessionsSkillFlag string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions",
	RunE:  runSessions,
}

var sessionMessagesCmd = &cobra.Command{
	Use:   "messages [session-id]",
	Short: "Print the ordered message history for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionMessages,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsSkillFlag, "skill", "", "filter by skill name")
	sessionsCmd.AddCommand(sessionMessagesCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	svc, err := service.New(cfg)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer svc.Shutdown(cmd.Context())

	sessions, err := svc.Store.ListSessions(cmd.Context(), store.SessionFilter{SkillName: sessionsSkillFlag, Limit: 20})
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	for _, s := range sessions {
		fmt.Printf("%s  skill=%s  last_used=%s\n", s.ID, s.SkillName, s.LastUsedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSessionMessages(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	svc, err := service.New(cfg)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer svc.Shutdown(cmd.Context())

	messages, err := svc.Store.List(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("listing messages: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(messages)
}
