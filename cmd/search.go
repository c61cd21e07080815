package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/agentgw/internal/config"
	"github.com/ziadkadry99/agentgw/internal/embeddings"
	"github.com/ziadkadry99/agentgw/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the ingested knowledge base",
	Long:  `Embeds the query and returns the nearest chunks from the vector store, optionally filtered by skill or tag.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 5, "maximum number of results")
	searchCmd.Flags().String("collection", "default", "collection to search")
	searchCmd.Flags().StringSlice("skills", nil, "filter by skill tag")
	searchCmd.Flags().StringSlice("tags", nil, "filter by tag")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := args[0]

	limit, _ := cmd.Flags().GetInt("limit")
	collection, _ := cmd.Flags().GetString("collection")
	skills, _ := cmd.Flags().GetStringSlice("skills")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg.Embedding.Provider, cfg.Embedding.Model, "")
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	store := vectordb.NewChromemStore(embedder)
	if err := store.Load(ctx, cfg.Storage.VectorDir); err != nil {
		return fmt.Errorf("loading vector store from %s: %w\nRun `agentgw ingest` first to build the index", cfg.Storage.VectorDir, err)
	}

	if store.Count(collection) == 0 {
		fmt.Println("Knowledge base is empty. Run `agentgw ingest` first.")
		return nil
	}

	results, err := store.Search(ctx, collection, query, skills, tags, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	printSearchResultsTable(results)
	return nil
}

func printSearchResultsTable(results []vectordb.SearchResult) {
	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		fmt.Printf("  %d. [%.1f%%] %s\n", i+1, r.Similarity*100, r.Chunk.Source)
		fmt.Printf("     %s\n\n", truncate(r.Chunk.Text, 160))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
