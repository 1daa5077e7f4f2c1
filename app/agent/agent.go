package agent

import (
	"context"
	"log/slog"

	"supportbot/types"
)

// Retriever answers top-k similarity queries against the support corpus.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]types.ScoredDocument, error)
}

// Generator produces a completion for an assembled prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SessionStorer owns the per-session turn history.
type SessionStorer interface {
	GetHistory(sessionID string) []types.Turn
	AddInteraction(sessionID, userInput, aiResponse string, scores []types.SimilarityScore) (string, error)
	CreateNewSession(ctx context.Context) string
}

// Pipeline composes retrieval, prompt assembly, generation and session
// persistence into one chat turn.
type Pipeline struct {
	retriever Retriever
	generator Generator
	sessions  SessionStorer
	topK      int
	logger    *slog.Logger
}

func NewPipeline(r Retriever, g Generator, s SessionStorer, topK int) *Pipeline {
	return &Pipeline{
		retriever: r,
		generator: g,
		sessions:  s,
		topK:      topK,
		logger:    slog.Default(),
	}
}

// HandleTurn runs one end-to-end chat turn and returns the (possibly
// newly minted) session id with the normalized response.
//
// A generation failure aborts the turn before anything is recorded: a
// turn never exists without its response. A session log write failure
// also aborts; both propagate to the caller unretried. The session id
// comes back even on failure, since minting it may already have rolled
// the session log over.
func (p *Pipeline) HandleTurn(ctx context.Context, query, sessionID string) (string, string, error) {
	if sessionID == "" {
		sessionID = p.sessions.CreateNewSession(ctx)
	}

	docs, err := p.retriever.Search(ctx, query, p.topK)
	if err != nil {
		return sessionID, "", err
	}

	history := p.sessions.GetHistory(sessionID)
	prompt := BuildPrompt(query, docs, history)
	if count, err := PromptTokens(prompt); err == nil {
		p.logger.Info("prompt assembled",
			"session_id", sessionID, "tokens", count, "context_docs", len(docs))
	}

	raw, err := p.generator.Complete(ctx, prompt)
	if err != nil {
		return sessionID, "", err
	}

	response, err := p.sessions.AddInteraction(sessionID, query, raw, types.ScoresFromDocs(docs))
	if err != nil {
		return sessionID, "", err
	}

	return sessionID, response, nil
}
