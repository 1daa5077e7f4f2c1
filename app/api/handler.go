package api

import (
	"github.com/gofiber/fiber/v2"

	"supportbot/app/agent"
	"supportbot/types"
)

// NewSessionGreeting is the shell response returned when a fresh
// session is created without a first message.
const NewSessionGreeting = "New session created. How can I help you today?"

// ChatHandler serves the chat endpoints. The full pipeline backs
// /chat; /generate_response drives the same collaborators step by step
// so the computed similarity scores are forwarded explicitly.
type ChatHandler struct {
	pipeline  *agent.Pipeline
	retriever agent.Retriever
	generator agent.Generator
	sessions  agent.SessionStorer
	topK      int
}

func NewChatHandler(pipeline *agent.Pipeline, r agent.Retriever, g agent.Generator, s agent.SessionStorer, topK int) *ChatHandler {
	return &ChatHandler{
		pipeline:  pipeline,
		retriever: r,
		generator: g,
		sessions:  s,
		topK:      topK,
	}
}

// HandleChat runs one chat turn and answers with the recorded turn's
// similarity scores.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatRequest
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	sessionID, response, err := h.pipeline.HandleTurn(c.Context(), params.Input, params.SessionID)
	if err != nil {
		return err
	}

	// The pipeline has already persisted the turn; read its scores back
	// so the response reflects exactly what was recorded.
	var scores []types.SimilarityScore
	if history := h.sessions.GetHistory(sessionID); len(history) > 0 {
		scores = history[len(history)-1].SimilarityScores
	}

	return c.JSON(types.ChatResponse{
		SessionID:        sessionID,
		Response:         response,
		SimilarityScores: scores,
		Sources:          sourcesFor(scores),
	})
}

// HandleGenerateResponse is the alternate entry point: it performs the
// retrieval itself and forwards the computed scores through persistence
// and into the response explicitly.
func (h *ChatHandler) HandleGenerateResponse(c *fiber.Ctx) error {
	var params types.ChatRequest
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = h.sessions.CreateNewSession(c.Context())
	}

	docs, err := h.retriever.Search(c.Context(), params.Input, h.topK)
	if err != nil {
		return err
	}
	scores := types.ScoresFromDocs(docs)

	history := h.sessions.GetHistory(sessionID)
	prompt := agent.BuildPrompt(params.Input, docs, history)

	raw, err := h.generator.Complete(c.Context(), prompt)
	if err != nil {
		return err
	}

	response, err := h.sessions.AddInteraction(sessionID, params.Input, raw, scores)
	if err != nil {
		return err
	}

	return c.JSON(types.ChatResponse{
		SessionID:        sessionID,
		Response:         response,
		SimilarityScores: scores,
		Sources:          sourcesFor(scores),
	})
}

// HandleNewSession flushes the session log and mints a fresh session.
func (h *ChatHandler) HandleNewSession(c *fiber.Ctx) error {
	sessionID := h.sessions.CreateNewSession(c.Context())
	return c.JSON(types.ChatResponse{
		SessionID:        sessionID,
		Response:         NewSessionGreeting,
		SimilarityScores: []types.SimilarityScore{},
		Sources:          []string{},
	})
}

func sourcesFor(scores []types.SimilarityScore) []string {
	sources := make([]string, len(scores))
	for i := range scores {
		sources[i] = types.DocSource
	}
	return sources
}
