package vectordb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"

	"github.com/ziadkadry99/agentgw/internal/embeddings"
)

const defaultCollection = "default"

// ChromemStore implements Store using chromem-go, with named collections
// created lazily on first use and a post-retrieval skill/tag filter applied
// in Go since chromem's where-clause matching only supports equality.
type ChromemStore struct {
	mu          sync.Mutex
	db          *chromem.DB
	embedder    embeddings.Embedder
	embedFunc   chromem.EmbeddingFunc
	collections map[string]*chromem.Collection
}

// NewChromemStore creates a new in-memory ChromemStore backed by embedder.
func NewChromemStore(embedder embeddings.Embedder) *ChromemStore {
	return &ChromemStore{
		db:          chromem.NewDB(),
		embedder:    embedder,
		embedFunc:   embeddings.ToChromemFunc(embedder),
		collections: map[string]*chromem.Collection{},
	}
}

func (s *ChromemStore) collectionFor(name string) (*chromem.Collection, error) {
	if name == "" {
		name = defaultCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[name]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(name, nil, s.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("vectordb: create collection %q: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}

func (s *ChromemStore) Ingest(ctx context.Context, collection, source, text string, skills, tags []string) (int, error) {
	pieces := splitText(text, defaultChunkSize, defaultChunkOverlap)
	if len(pieces) == 0 {
		return 0, nil
	}

	col, err := s.collectionFor(collection)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	docs := make([]chromem.Document, len(pieces))
	for i, piece := range pieces {
		docs[i] = chromem.Document{
			ID:      uuid.NewString(),
			Content: piece,
			Metadata: map[string]string{
				"source":       source,
				"skills":       strings.Join(skills, ","),
				"tags":         strings.Join(tags, ","),
				"chunk_index":  strconv.Itoa(i),
				"total_chunks": strconv.Itoa(len(pieces)),
				"created_at":   now.Format(time.RFC3339),
			},
		}
	}

	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return 0, fmt.Errorf("vectordb: ingest into %q: %w", col.Name, err)
	}
	return len(pieces), nil
}

func (s *ChromemStore) Search(ctx context.Context, collection, query string, skills, tags []string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 5
	}
	col, err := s.collectionFor(collection)
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	fetch := k
	filtering := len(skills) > 0 || len(tags) > 0
	if filtering {
		fetch = k * 3
	}
	if fetch > count {
		fetch = count
	}

	results, err := col.Query(ctx, query, fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectordb: search %q: %w", col.Name, err)
	}

	out := make([]SearchResult, 0, k)
	for _, r := range results {
		chunk := chunkFromDoc(chromem.Document{ID: r.ID, Content: r.Content, Metadata: r.Metadata})
		if !passesFilter(chunk, skills, tags) {
			continue
		}
		out = append(out, SearchResult{Chunk: chunk, Similarity: r.Similarity})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// passesFilter implements the empty-means-all disjunctive skill and tag
// filter: a chunk passes the skill filter iff the requested skills are
// empty, the chunk's own skills are empty, or the two sets intersect; the
// tag filter has no "chunk has no tags = passes" exception.
func passesFilter(c Chunk, skills, tags []string) bool {
	if len(skills) > 0 && len(c.Skills) > 0 && !intersects(skills, c.Skills) {
		return false
	}
	if len(tags) > 0 && !intersects(tags, c.Tags) {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	for _, v := range a {
		if set[v] {
			return true
		}
	}
	return false
}

func (s *ChromemStore) List(ctx context.Context, collection string, skills []string, sourceSubstring string, limit int) ([]ChunkSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	col, err := s.collectionFor(collection)
	if err != nil {
		return nil, err
	}
	if col.Count() == 0 {
		return nil, nil
	}

	// chromem has no plain "get all" API; a broad similarity query against
	// an empty-ish string surfaces the whole collection up to its size.
	fetch := limit
	if c := col.Count(); fetch > c {
		fetch = c
	}
	results, err := col.Query(ctx, " ", fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vectordb: list %q: %w", col.Name, err)
	}

	out := make([]ChunkSummary, 0, len(results))
	for _, r := range results {
		chunk := chunkFromDoc(chromem.Document{ID: r.ID, Content: r.Content, Metadata: r.Metadata})
		if len(skills) > 0 && len(chunk.Skills) > 0 && !intersects(skills, chunk.Skills) {
			continue
		}
		if sourceSubstring != "" && !strings.Contains(strings.ToLower(chunk.Source), strings.ToLower(sourceSubstring)) {
			continue
		}
		out = append(out, ChunkSummary{
			ID:      chunk.ID,
			Source:  chunk.Source,
			Preview: preview(chunk.Text),
			Skills:  chunk.Skills,
			Tags:    chunk.Tags,
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *ChromemStore) Delete(ctx context.Context, collection string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	col, err := s.collectionFor(collection)
	if err != nil {
		return 0, err
	}

	count := col.Count()
	if count == 0 {
		return 0, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	// chromem has no get-by-id API; a broad query surfaces the whole
	// collection so the ids that actually exist can be counted before the
	// matching ones are deleted underneath.
	results, err := col.Query(ctx, " ", count, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("vectordb: checking ids before delete from %q: %w", col.Name, err)
	}
	existing := 0
	for _, r := range results {
		if want[r.ID] {
			existing++
		}
	}

	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return 0, fmt.Errorf("vectordb: delete from %q: %w", col.Name, err)
	}
	return existing, nil
}

func (s *ChromemStore) DeleteBySource(ctx context.Context, collection, source string) (int, error) {
	col, err := s.collectionFor(collection)
	if err != nil {
		return 0, err
	}

	count := col.Count()
	if count == 0 {
		return 0, nil
	}
	where := map[string]string{"source": source}
	// Fetch the matching chunks before deleting so the count returned
	// reflects what was actually removed, not what was asked for.
	matches, err := col.Query(ctx, source, count, where, nil)
	if err != nil {
		return 0, fmt.Errorf("vectordb: querying by source from %q: %w", col.Name, err)
	}

	if err := col.Delete(ctx, where, nil); err != nil {
		return 0, fmt.Errorf("vectordb: delete by source from %q: %w", col.Name, err)
	}
	return len(matches), nil
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/chromem.gob.gz", true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	if err := s.db.ImportFromFile(dir+"/chromem.gob.gz", ""); err != nil {
		return fmt.Errorf("vectordb: import from file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.collections {
		if col := s.db.GetCollection(name, s.embedFunc); col != nil {
			s.collections[name] = col
		}
	}
	return nil
}

func (s *ChromemStore) Count(collection string) int {
	col, err := s.collectionFor(collection)
	if err != nil {
		return 0
	}
	return col.Count()
}

func chunkFromDoc(d chromem.Document) Chunk {
	chunkIndex, _ := strconv.Atoi(d.Metadata["chunk_index"])
	totalChunks, _ := strconv.Atoi(d.Metadata["total_chunks"])
	createdAt, _ := time.Parse(time.RFC3339, d.Metadata["created_at"])

	return Chunk{
		ID:          d.ID,
		Source:      d.Metadata["source"],
		Text:        d.Content,
		Skills:      splitCSV(d.Metadata["skills"]),
		Tags:        splitCSV(d.Metadata["tags"]),
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		CreatedAt:   createdAt,
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
