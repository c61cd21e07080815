package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/service"
)

var skillsJSON bool

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List loaded skills",
	RunE:  runSkills,
}

func init() {
	skillsCmd.Flags().BoolVar(&skillsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(skillsCmd)
}

func runSkills(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	svc, err := service.New(cfg)
	if err != nil {
		return fmt.Errorf("starting service: %w", err)
	}
	defer svc.Shutdown(cmd.Context())

	list := svc.Skills.List()
	if skillsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	for _, sk := range list {
		tags := "general"
		if len(sk.Tags) > 0 {
			tags = strings.Join(sk.Tags, ", ")
		}
		fmt.Printf("%s\n  %s\n  tags: %s | tools: %s\n\n", sk.Name, sk.Description, tags, strings.Join(sk.Tools, ", "))
	}
	return nil
}
