package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiEmbedder calls the Gemini batchEmbedContents endpoint.
type GeminiEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	baseURL    string
	client     *http.Client
}

// NewGeminiEmbedder creates an embedder for model (default text-embedding-004).
// An empty apiKey makes every call fail with ErrNotConfigured.
func NewGeminiEmbedder(apiKey, model string, dimensions int, opts ...Option) *GeminiEmbedder {
	o := applyOptions(geminiBaseURL, opts)
	if model == "" {
		model = "text-embedding-004"
	}
	if dimensions <= 0 {
		dimensions = 768
	}
	return &GeminiEmbedder{
		apiKey:     apiKey,
		model:      strings.TrimPrefix(model, "models/"),
		dimensions: dimensions,
		baseURL:    o.baseURL,
		client:     o.client,
	}
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the embedding for text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds all texts in one request.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if strings.TrimSpace(e.apiKey) == "" {
		return nil, ErrNotConfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}
	model := "models/" + e.model
	req := geminiBatchRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, t := range texts {
		req.Requests[i] = geminiEmbedRequest{
			Model:   model,
			Content: geminiContent{Parts: []geminiPart{{Text: providerText(t)}}},
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s", e.baseURL, model, url.QueryEscape(e.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini embed request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini embed error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out geminiBatchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gemini embed response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("gemini embed returned error: %s", out.Error.Message)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed returned %d vectors for %d texts", len(out.Embeddings), len(texts))
	}
	vectors := make([][]float32, len(texts))
	for i, emb := range out.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embed returned an empty vector at %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// Dimensions returns the configured embedding dimension.
func (e *GeminiEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op.
func (e *GeminiEmbedder) Close() error { return nil }
