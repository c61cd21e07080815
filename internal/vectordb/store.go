package vectordb

import "context"

// Store defines the interface for chunking, embedding, and searching
// text within named collections, with post-retrieval skill/tag filtering.
type Store interface {
	// Ingest splits text into chunks, embeds them, and inserts them into
	// the named collection tagged with skills and tags. Returns the
	// number of chunks inserted.
	Ingest(ctx context.Context, collection, source, text string, skills, tags []string) (int, error)

	// Search embeds query, retrieves the nearest-neighbour set, and
	// returns the first k survivors of the skill+tag post-filter in
	// similarity order.
	Search(ctx context.Context, collection, query string, skills, tags []string, k int) ([]SearchResult, error)

	// List returns chunk previews without ranking.
	List(ctx context.Context, collection string, skills []string, sourceSubstring string, limit int) ([]ChunkSummary, error)

	// Delete removes chunks by id and returns the number removed.
	Delete(ctx context.Context, collection string, ids []string) (int, error)

	// DeleteBySource removes all chunks with the given source and
	// returns the number removed.
	DeleteBySource(ctx context.Context, collection, source string) (int, error)

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the number of chunks in the named collection.
	Count(collection string) int
}
