package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// EmbedderInterface turns text into a dense vector via a remote
// feature-extraction endpoint.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HFEmbedder calls a Hugging Face feature-extraction endpoint
// (sentence-transformer, 384 dimensions).
type HFEmbedder struct {
	apiURL  string
	token   string
	timeout time.Duration
	client  *http.Client
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

func NewHFEmbedder(apiURL, token string, timeout time.Duration) *HFEmbedder {
	return &HFEmbedder{
		apiURL:  apiURL,
		token:   token,
		timeout: timeout,
		client:  http.DefaultClient,
	}
}

func (e *HFEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Inputs: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	vec, err := decodeEmbedding(respBody)
	if err != nil {
		return nil, err
	}

	norm := normalize64(vec)
	embedding := make([]float32, len(norm))
	for i, v := range norm {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// decodeEmbedding accepts both response shapes the endpoint is known to
// emit: a bare vector, or one vector per input.
func decodeEmbedding(data []byte) ([]float64, error) {
	var batched [][]float64
	if err := json.Unmarshal(data, &batched); err == nil && len(batched) > 0 {
		return batched[0], nil
	}

	var single []float64
	if err := json.Unmarshal(data, &single); err == nil && len(single) > 0 {
		return single, nil
	}
	return nil, fmt.Errorf("failed to unmarshal embedding response")
}

// normalize64 scales the vector to unit length.
func normalize64(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}

	out := make([]float64, len(vec))
	for i, x := range vec {
		out[i] = x / norm
	}
	return out
}
