// Package knowledge retrieves similar worked problems from the vector-backed
// math knowledge base. Queries are embedded locally and matched against a
// Qdrant collection of curated and public dataset problems.
package knowledge

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"mathtutor/pkg/agent/llm"
	"mathtutor/pkg/config"
	"mathtutor/pkg/logx"
	"mathtutor/pkg/retrieval"
)

// maxSolutionPreviewChars bounds each solution in the formatted output so one
// long worked solution cannot crowd out the rest of the context.
const maxSolutionPreviewChars = 600

// Searcher retrieves formatted knowledge base context for a question.
type Searcher interface {
	Retrieve(ctx context.Context, question string) retrieval.Result
}

// VectorSearcher implements Searcher over an embedding model and a Store.
type VectorSearcher struct {
	embedder llm.Embedder
	store    Store
	limit    int
	logger   *logx.Logger
}

// NewVectorSearcher creates a searcher with the given embedder and store.
func NewVectorSearcher(embedder llm.Embedder, store Store, limit int) *VectorSearcher {
	if limit <= 0 {
		limit = config.DefaultKnowledgeLimit
	}
	return &VectorSearcher{
		embedder: embedder,
		store:    store,
		limit:    limit,
		logger:   logx.NewLogger("knowledge"),
	}
}

// Retrieve embeds the question, searches the store, and returns a tagged
// result. Embedding and store errors are absorbed into failed results so an
// unreachable knowledge base never sinks the pipeline.
func (s *VectorSearcher) Retrieve(ctx context.Context, question string) retrieval.Result {
	return s.RetrieveFiltered(ctx, question, "")
}

// RetrieveFiltered is Retrieve with an optional topic filter.
func (s *VectorSearcher) RetrieveFiltered(ctx context.Context, question, topicFilter string) retrieval.Result {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn("query embedding failed: %v", err)
		return retrieval.Failed(fmt.Sprintf("Knowledge base search failed: %v", err))
	}

	entries, err := s.store.Search(ctx, vector, s.limit, topicFilter)
	if err != nil {
		s.logger.Warn("knowledge base search failed: %v", err)
		return retrieval.Failed(fmt.Sprintf("Knowledge base search failed: %v", err))
	}

	if len(entries) == 0 {
		s.logger.Debug("no relevant problems found")
		return retrieval.Empty()
	}

	return retrieval.OK(formatEntries(entries))
}

// formatEntries renders entries as numbered example blocks with bounded
// solution previews and two-decimal relevance scores.
func formatEntries(entries []Entry) string {
	blocks := make([]string, 0, len(entries))
	for i := range entries {
		e := &entries[i]

		solution := e.Solution
		if utf8.RuneCountInString(solution) > maxSolutionPreviewChars {
			solution = string([]rune(solution)[:maxSolutionPreviewChars]) + "..."
		}

		blocks = append(blocks, fmt.Sprintf(
			"Example %d:\nProblem: %s\nSolution: %s\nTopic: %s | Difficulty: %s\nRelevance Score: %.2f\n---",
			i+1, e.Problem, solution, e.Topic, e.Difficulty, e.Score,
		))
	}
	return strings.Join(blocks, "\n")
}
