package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders search results as human-readable text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (similarity: %.4f) ---\n", i+1, r.Similarity))
		if r.Chunk.Source != "" {
			sb.WriteString(fmt.Sprintf("Source: %s (chunk %d/%d)\n", r.Chunk.Source, r.Chunk.ChunkIndex+1, r.Chunk.TotalChunks))
		}
		if len(r.Chunk.Skills) > 0 {
			sb.WriteString(fmt.Sprintf("Skills: %s\n", strings.Join(r.Chunk.Skills, ", ")))
		}
		if len(r.Chunk.Tags) > 0 {
			sb.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(r.Chunk.Tags, ", ")))
		}
		sb.WriteString("\n")
		sb.WriteString(r.Chunk.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
