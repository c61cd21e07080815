package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "agentgw",
	Short: "Skill-routed multi-agent gateway",
	Long: `agentgw loads declarative skill bundles, routes messages to the
right one, and runs them against an LLM provider with tool calling,
delegation, retrieval-augmented context, a cron-driven scheduler, and
webhook event fan-out.
It exposes itself over HTTP, a websocket, MCP, and this CLI.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "agentgw.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
