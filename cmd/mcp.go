package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/mcpserver"
	"github.com/ziadkadry99/agentgw/internal/service"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the tool registry over MCP on stdio",
	Long:  `Starts a Model Context Protocol server on stdio, exposing every registered tool for an MCP-speaking agent host.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		svc, err := service.New(cfg)
		if err != nil {
			return fmt.Errorf("starting service: %w", err)
		}
		defer svc.Shutdown(cmd.Context())

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "agentgw MCP server started on stdio (%d tools)\n", len(svc.Tools.Names()))

		srv := mcpserver.NewServer(svc.Tools)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
