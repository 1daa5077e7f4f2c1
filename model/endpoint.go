package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"supportbot/types"
)

// Fixed decoding parameters for the hosted model. Callers cannot
// override these.
const (
	maxNewTokens      = 512
	genTopK           = 10
	genTopP           = 0.95
	genTypicalP       = 0.95
	genTemperature    = 0.01
	repetitionPenalty = 1.03
)

// healthPrompt is the trivial prompt the health probe sends. Any
// successful completion counts as healthy.
const healthPrompt = "Hello, can you give me a short response?"

// HFEndpoint calls a hosted Hugging Face text-generation endpoint.
type HFEndpoint struct {
	apiURL  string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

type generateParameters struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	TopK              int     `json:"top_k"`
	TopP              float64 `json:"top_p"`
	TypicalP          float64 `json:"typical_p"`
	Temperature       float64 `json:"temperature"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	ReturnFullText    bool    `json:"return_full_text"`
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateResponse struct {
	// Pointer so an absent field is distinguishable from an empty
	// completion.
	GeneratedText *string `json:"generated_text"`
}

func NewHFEndpoint(apiURL, token string, timeout time.Duration) *HFEndpoint {
	return &HFEndpoint{
		apiURL:  apiURL,
		token:   token,
		timeout: timeout,
		client:  http.DefaultClient,
		logger:  slog.Default(),
	}
}

// Complete sends the assembled prompt to the endpoint and returns the
// raw completion text. All failures come back as types.GenerationError.
func (e *HFEndpoint) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() {
		e.logger.Info("LLM completion finished", "elapsed", time.Since(start))
	}()

	reqBody, err := json.Marshal(generateRequest{
		Inputs: prompt,
		Parameters: generateParameters{
			MaxNewTokens:      maxNewTokens,
			TopK:              genTopK,
			TopP:              genTopP,
			TypicalP:          genTypicalP,
			Temperature:       genTemperature,
			RepetitionPenalty: repetitionPenalty,
			ReturnFullText:    false,
		},
	})
	if err != nil {
		return "", types.NewGenerationError(fmt.Errorf("failed to marshal request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", types.NewGenerationError(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", types.NewGenerationError(fmt.Errorf("failed to make request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewGenerationError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", types.NewGenerationError(fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(body)))
	}

	text, err := decodeCompletion(body)
	if err != nil {
		return "", types.NewGenerationError(err)
	}
	return text, nil
}

// decodeCompletion accepts both response shapes the endpoint emits: a
// list with one generation per input, or a single object. A well-formed
// response carrying an empty completion is reported as such, not as
// malformed.
func decodeCompletion(body []byte) (string, error) {
	var list []generateResponse
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].GeneratedText != nil {
		return completionText(*list[0].GeneratedText)
	}

	var single generateResponse
	if err := json.Unmarshal(body, &single); err == nil && single.GeneratedText != nil {
		return completionText(*single.GeneratedText)
	}
	return "", fmt.Errorf("malformed generation response: %s", string(body))
}

func completionText(text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("endpoint returned an empty completion")
	}
	return text, nil
}

// Health sends a trivial prompt to the endpoint. The error, if any, is
// returned to the caller rather than swallowed so the health aggregator
// can report it.
func (e *HFEndpoint) Health(ctx context.Context) error {
	_, err := e.Complete(ctx, healthPrompt)
	return err
}
