package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/service"
)

var (
	ingestCollection string
	ingestSkills     []string
	ingestTags       []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a file or directory into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", "default", "target collection")
	ingestCmd.Flags().StringSliceVar(&ingestSkills, "skills", nil, "skill tags to attach")
	ingestCmd.Flags().StringSliceVar(&ingestTags, "tags", nil, "free-form tags to attach")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	files, err := collectIngestFiles(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No files found to ingest.")
		return nil
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	var totalChunks int
	for _, f := range files {
		text, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}
		n, err := svc.Ingest(ctx, ingestCollection, f, string(text), ingestSkills, ingestTags)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", f, err)
		}
		totalChunks += n
		bar.Describe(f)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Printf("Ingested %d file(s), %d chunk(s) into %q.\n", len(files), totalChunks, ingestCollection)
	return nil
}

func collectIngestFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("accessing %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
