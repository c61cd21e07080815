package tools

import "context"

// KBSearchResult is one retrieved chunk, shaped for LLM consumption.
type KBSearchResult struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
}

// KBSearcher is the minimal surface the knowledge-base search tool needs
// from a vector store; satisfied structurally by vectordb.Store.
type KBSearcher interface {
	Search(ctx context.Context, collection, query string, skills, tags []string, k int) ([]KBSearchResult, error)
}

// KBDocSummary previews a stored chunk without ranking.
type KBDocSummary struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Preview string `json:"preview"`
}

// KBLister is the minimal surface the list-documents tool needs.
type KBLister interface {
	List(ctx context.Context, collection string, skills []string, sourceSubstring string, limit int) ([]KBDocSummary, error)
}

// SearchKnowledgeBaseArgs are the parameters of the search_knowledge_base tool.
type SearchKnowledgeBaseArgs struct {
	Query      string   `json:"query" jsonschema:"required,description=Natural language search query."`
	Collection string   `json:"collection" jsonschema:"description=Named collection to search. Defaults to the default collection."`
	Skills     []string `json:"skills,omitempty" jsonschema:"description=Restrict results to chunks tagged with one of these skills; empty means no restriction."`
	Tags       []string `json:"tags,omitempty" jsonschema:"description=Restrict results to chunks tagged with one of these tags; empty means no restriction."`
	TopK       int      `json:"top_k,omitempty" jsonschema:"description=Number of results to return. Defaults to 5."`
}

// ListDocumentsArgs are the parameters of the list_documents tool.
type ListDocumentsArgs struct {
	Collection      string `json:"collection" jsonschema:"description=Named collection to list. Defaults to the default collection."`
	SourceSubstring string `json:"source_substring,omitempty" jsonschema:"description=Only include chunks whose source contains this substring."`
	Limit           int    `json:"limit,omitempty" jsonschema:"description=Maximum number of chunks to return. Defaults to 20."`
}

// RegisterKnowledgeBaseTools registers search_knowledge_base and
// list_documents against the given vector store surfaces.
func RegisterKnowledgeBaseTools(r *Registry, searcher KBSearcher, lister KBLister) error {
	if err := Register(r, "search_knowledge_base", "Search the ingested knowledge base for relevant text chunks.",
		func(ctx context.Context, args SearchKnowledgeBaseArgs) (any, error) {
			if args.Query == "" {
				return nil, errRequired("query")
			}
			k := args.TopK
			if k <= 0 {
				k = 5
			}
			return searcher.Search(ctx, args.Collection, args.Query, args.Skills, args.Tags, k)
		}); err != nil {
		return err
	}

	return Register(r, "list_documents", "List ingested knowledge base chunks without ranking.",
		func(ctx context.Context, args ListDocumentsArgs) (any, error) {
			limit := args.Limit
			if limit <= 0 {
				limit = 20
			}
			var skills []string
			return lister.List(ctx, args.Collection, skills, args.SourceSubstring, limit)
		})
}

func errRequired(field string) error {
	return requiredFieldError{field}
}

type requiredFieldError struct{ field string }

func (e requiredFieldError) Error() string {
	return e.field + " is required"
}
