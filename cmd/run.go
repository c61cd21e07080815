package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/service"
)

var runSkillFlag string

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Run a skill to completion against a message",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runSkillFlag, "skill", "", "skill to run (required)")
	runCmd.MarkFlagRequired("skill")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	svc, err := service.New(cfg)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer svc.Shutdown(context.Background())

	_, result, err := svc.Run(context.Background(), "", runSkillFlag, args[0])
	if err != nil {
		return fmt.Errorf("running skill: %w", err)
	}

	fmt.Println(result)
	return nil
}
