package websearch

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"mathtutor/pkg/config"
	"mathtutor/pkg/logx"
	"mathtutor/pkg/retrieval"
)

const (
	// maxContentChars bounds each result's content in the formatted output.
	maxContentChars = 400

	mathSiteFilter = "site:khanacademy.org OR site:mathworld.wolfram.com OR site:brilliant.org"
)

// Searcher retrieves and formats web results for the pipeline. It owns the
// query enhancement strategy: a math-focused site-filtered query first, then
// a plain "math" prefixed query when the first returns nothing.
type Searcher struct {
	provider   SearchProvider
	maxResults int
	logger     *logx.Logger
}

// NewSearcher creates a web searcher using the best available provider.
// Google Custom Search is used when credentials are configured, otherwise
// DuckDuckGo.
func NewSearcher(cfg *config.Config) *Searcher {
	var provider SearchProvider
	if cfg.WebSearch.GoogleAPIKey != "" && cfg.WebSearch.GoogleCX != "" {
		provider = NewGoogleSearchProvider(cfg.WebSearch.GoogleAPIKey, cfg.WebSearch.GoogleCX)
	} else {
		provider = NewDuckDuckGoProvider()
	}

	return NewSearcherWithProvider(provider, cfg.WebSearch.MaxResults)
}

// NewSearcherWithProvider creates a web searcher with a specific provider.
func NewSearcherWithProvider(provider SearchProvider, maxResults int) *Searcher {
	if maxResults <= 0 {
		maxResults = config.DefaultWebResults
	}
	return &Searcher{
		provider:   provider,
		maxResults: maxResults,
		logger:     logx.NewLogger("websearch"),
	}
}

// Retrieve searches the web for the question and returns a tagged result.
// Provider errors are absorbed into a failed result; they never propagate as
// Go errors because a dead search backend must not sink the whole pipeline.
func (s *Searcher) Retrieve(ctx context.Context, question string) retrieval.Result {
	enhanced := fmt.Sprintf("mathematics tutorial %s %s", question, mathSiteFilter)

	results, err := s.provider.Search(ctx, enhanced, s.maxResults)
	if err != nil {
		s.logger.Warn("web search failed (provider=%s): %v", s.provider.Name(), err)
		return retrieval.Failed(fmt.Sprintf("Web search failed: %v", err))
	}

	if len(results) == 0 {
		// Site-filtered query can be too narrow; retry with a plain one.
		results, err = s.provider.Search(ctx, "math "+question, s.maxResults)
		if err != nil {
			s.logger.Warn("fallback web search failed (provider=%s): %v", s.provider.Name(), err)
			return retrieval.Failed(fmt.Sprintf("Web search failed: %v", err))
		}
	}

	if len(results) == 0 {
		s.logger.Debug("no web results for question")
		return retrieval.Empty()
	}

	return retrieval.OK(formatResults(results))
}

// formatResults renders results as numbered blocks with bounded content.
func formatResults(results []SearchResult) string {
	blocks := make([]string, 0, len(results))
	for i := range results {
		r := &results[i]
		blocks = append(blocks, fmt.Sprintf(
			"Result %d:\nTitle: %s\nContent: %s\nURL: %s\n---",
			i+1,
			orNA(r.Title),
			truncate(orNA(r.Content), maxContentChars),
			orNA(r.URL),
		))
	}
	return strings.Join(blocks, "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// truncate bounds s to limit characters, cutting on a rune boundary.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
