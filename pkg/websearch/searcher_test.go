package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathtutor/pkg/retrieval"
)

// stubProvider returns scripted results per call.
type stubProvider struct {
	results [][]SearchResult
	errs    []error
	queries []string
	call    int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(_ context.Context, query string, _ int) ([]SearchResult, error) {
	s.queries = append(s.queries, query)
	idx := s.call
	s.call++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	if idx < len(s.results) {
		return s.results[idx], nil
	}
	return nil, nil
}

func TestRetrieveFormatsResults(t *testing.T) {
	provider := &stubProvider{
		results: [][]SearchResult{{
			{Title: "Quadratic Formula", Content: "The quadratic formula solves ax^2+bx+c=0.", URL: "https://mathworld.wolfram.com/QuadraticFormula.html"},
			{Title: "", Content: "Factoring tutorial", URL: ""},
		}},
	}
	searcher := NewSearcherWithProvider(provider, 3)

	result := searcher.Retrieve(context.Background(), "solve x^2+5x+6=0")
	require.Equal(t, retrieval.StatusOK, result.Status)

	assert.Contains(t, result.Text, "Result 1:")
	assert.Contains(t, result.Text, "Title: Quadratic Formula")
	assert.Contains(t, result.Text, "URL: https://mathworld.wolfram.com/QuadraticFormula.html")
	// Missing fields render as N/A rather than blank lines.
	assert.Contains(t, result.Text, "Title: N/A")

	// The first query carries the math site filter.
	require.Len(t, provider.queries, 1)
	assert.Contains(t, provider.queries[0], "mathematics tutorial")
	assert.Contains(t, provider.queries[0], "site:khanacademy.org")
}

func TestRetrieveFallsBackToPlainQuery(t *testing.T) {
	provider := &stubProvider{
		results: [][]SearchResult{
			nil, // enhanced query finds nothing
			{{Title: "Derivatives", Content: "Power rule", URL: "https://example.com"}},
		},
	}
	searcher := NewSearcherWithProvider(provider, 3)

	result := searcher.Retrieve(context.Background(), "derivative of x^2")
	require.Equal(t, retrieval.StatusOK, result.Status)

	require.Len(t, provider.queries, 2)
	assert.Equal(t, "math derivative of x^2", provider.queries[1])
}

func TestRetrieveEmptyAfterFallback(t *testing.T) {
	provider := &stubProvider{results: [][]SearchResult{nil, nil}}
	searcher := NewSearcherWithProvider(provider, 3)

	result := searcher.Retrieve(context.Background(), "obscure question")
	assert.Equal(t, retrieval.StatusEmpty, result.Status)
}

func TestRetrieveAbsorbsProviderError(t *testing.T) {
	provider := &stubProvider{errs: []error{fmt.Errorf("connection refused")}}
	searcher := NewSearcherWithProvider(provider, 3)

	result := searcher.Retrieve(context.Background(), "anything")
	assert.Equal(t, retrieval.StatusFailed, result.Status)
	assert.Contains(t, result.Reason, "Web search failed")
}

func TestTruncateLongContent(t *testing.T) {
	long := strings.Repeat("x", 500)
	formatted := formatResults([]SearchResult{{Title: "T", Content: long, URL: "u"}})

	assert.Contains(t, formatted, strings.Repeat("x", 400)+"...")
	assert.NotContains(t, formatted, strings.Repeat("x", 401))
}

func TestTruncateOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("∑", 500)
	formatted := formatResults([]SearchResult{{Title: "T", Content: long, URL: "u"}})

	assert.True(t, utf8.ValidString(formatted))
	assert.Contains(t, formatted, strings.Repeat("∑", 400)+"...")
	assert.NotContains(t, formatted, strings.Repeat("∑", 401))
}

func TestGoogleProviderParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "test-cx", r.URL.Query().Get("cx"))
		resp := googleSearchResponse{
			Items: []googleSearchItem{
				{Title: "Khan Academy Algebra", Link: "https://khanacademy.org/algebra", Snippet: "Learn algebra"},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	provider := NewGoogleSearchProvider("test-key", "test-cx")
	provider.endpoint = server.URL

	results, err := provider.Search(context.Background(), "algebra", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Khan Academy Algebra", results[0].Title)
	assert.Equal(t, "Learn algebra", results[0].Content)
}

func TestGoogleProviderReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := googleSearchResponse{Error: &googleSearchError{Code: 403, Message: "quota exceeded"}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewGoogleSearchProvider("k", "cx")
	provider.endpoint = server.URL

	_, err := provider.Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDuckDuckGoProviderParsesInstantAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := duckDuckGoResponse{
			Heading:      "Pythagorean theorem",
			AbstractText: "In a right triangle, a^2 + b^2 = c^2.",
			AbstractURL:  "https://en.wikipedia.org/wiki/Pythagorean_theorem",
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider := NewDuckDuckGoProvider()
	provider.endpoint = server.URL

	results, err := provider.Search(context.Background(), "pythagorean theorem", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Pythagorean theorem", results[0].Title)
}
