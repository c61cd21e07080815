package service

import (
	"context"

	"github.com/ziadkadry99/agentgw/internal/tools"
	"github.com/ziadkadry99/agentgw/internal/vectordb"
)

// vectorKBAdapter narrows vectordb.Store to the tools.KBSearcher/KBLister
// surfaces, translating SearchResult/ChunkSummary into the LLM-facing
// shapes the knowledge-base tools advertise. The return types differ
// (vectordb carries Chunk/Similarity internals the tool schema should not
// expose), so structural satisfaction isn't possible without this adapter.
type vectorKBAdapter struct {
	store vectordb.Store
}

func (a vectorKBAdapter) Search(ctx context.Context, collection, query string, skills, tags []string, k int) ([]tools.KBSearchResult, error) {
	results, err := a.store.Search(ctx, collection, query, skills, tags, k)
	if err != nil {
		return nil, err
	}
	out := make([]tools.KBSearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, tools.KBSearchResult{Source: r.Chunk.Source, Text: r.Chunk.Text, Score: r.Similarity})
	}
	return out, nil
}

func (a vectorKBAdapter) List(ctx context.Context, collection string, skills []string, sourceSubstring string, limit int) ([]tools.KBDocSummary, error) {
	summaries, err := a.store.List(ctx, collection, skills, sourceSubstring, limit)
	if err != nil {
		return nil, err
	}
	out := make([]tools.KBDocSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, tools.KBDocSummary{ID: s.ID, Source: s.Source, Preview: s.Preview})
	}
	return out, nil
}
