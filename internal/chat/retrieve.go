package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nabahlab/nabah/internal/database"
)

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPEmbedder calls a local embedding service.
type HTTPEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewHTTPEmbedder(baseURL, model string) *HTTPEmbedder {
	return &HTTPEmbedder{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	// e5-family models expect the query prefix on search queries.
	body, err := marshalEmbedRequest(e.model, "query: "+text)
	if err != nil {
		return nil, err
	}
	return e.post(ctx, body)
}

func marshalEmbedRequest(model, input string) ([]byte, error) {
	body, err := json.Marshal(embedRequest{Model: model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

func (e *HTTPEmbedder) post(ctx context.Context, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("embedding service error: %s", parsed.Error)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned empty vector")
	}
	return parsed.Embedding, nil
}

// Retriever answers free-form questions with vector search over the
// documents table.
type Retriever interface {
	Search(ctx context.Context, question string, limit int) ([]database.Snippet, error)
}

type vectorRetriever struct {
	embedder Embedder
	docs     *database.DocumentRepository
	timeout  time.Duration
}

func NewVectorRetriever(embedder Embedder, docs *database.DocumentRepository) Retriever {
	return &vectorRetriever{embedder: embedder, docs: docs, timeout: 30 * time.Second}
}

func (r *vectorRetriever) Search(ctx context.Context, question string, limit int) ([]database.Snippet, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	snippets, err := r.docs.Search(ctx, vec, limit, 0.0)
	if errors.Is(err, database.ErrVectorUnsupported) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	return snippets, nil
}
