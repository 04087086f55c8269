package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Entry is one stored math problem with its worked solution.
type Entry struct {
	Problem    string
	Solution   string
	Topic      string
	Difficulty string
	Source     string
	Score      float64
}

// Store performs vector similarity search over stored math problems.
type Store interface {
	// Search returns the closest entries to the query vector, best first.
	// topicFilter restricts results to one topic when non-empty.
	Search(ctx context.Context, vector []float32, limit int, topicFilter string) ([]Entry, error)
}

// QdrantStore implements Store against Qdrant's REST API.
type QdrantStore struct {
	httpClient *http.Client
	baseURL    string
	collection string
}

// NewQdrantStore creates a store for the given Qdrant URL and collection.
func NewQdrantStore(baseURL, collection string) *QdrantStore {
	return &QdrantStore{
		baseURL:    baseURL,
		collection: collection,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type qdrantSearchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must"`
}

type qdrantCondition struct {
	Key   string      `json:"key"`
	Match qdrantMatch `json:"match"`
}

type qdrantMatch struct {
	Value string `json:"value"`
}

type qdrantPayload struct {
	Problem    string `json:"problem"`
	Solution   string `json:"solution"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Source     string `json:"source"`
}

type qdrantHit struct {
	Score   float64       `json:"score"`
	Payload qdrantPayload `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []qdrantHit `json:"result"`
	Status string      `json:"status"`
}

// Search queries the points/search endpoint.
// API docs: https://api.qdrant.tech/api-reference/search/points
func (q *QdrantStore) Search(ctx context.Context, vector []float32, limit int, topicFilter string) ([]Entry, error) {
	reqBody := qdrantSearchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	}
	if topicFilter != "" {
		reqBody.Filter = &qdrantFilter{
			Must: []qdrantCondition{{
				Key:   "topic",
				Match: qdrantMatch{Value: topicFilter},
			}},
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	searchURL := fmt.Sprintf("%s/collections/%s/points/search", q.baseURL, q.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp qdrantSearchResponse
	if unmarshalErr := json.Unmarshal(body, &searchResp); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", unmarshalErr)
	}

	entries := make([]Entry, 0, len(searchResp.Result))
	for i := range searchResp.Result {
		hit := &searchResp.Result[i]
		entries = append(entries, Entry{
			Problem:    hit.Payload.Problem,
			Solution:   hit.Payload.Solution,
			Topic:      hit.Payload.Topic,
			Difficulty: hit.Payload.Difficulty,
			Source:     hit.Payload.Source,
			Score:      hit.Score,
		})
	}

	return entries, nil
}
