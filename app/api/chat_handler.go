package api

import (
	"context"
	"strings"
	"time"

	"ragchat/model"
	"ragchat/retrieve"
	"ragchat/types"

	"github.com/gofiber/fiber/v2"
)

// excerptLimit bounds how much of a chunk is echoed back as a cited source.
const excerptLimit = 200

// PromptAssembler merges question, retrieved context and history into the
// prompt sent to the model.
type PromptAssembler interface {
	Assemble(question string, results []types.RetrievalResult, history []types.ConversationTurn) (string, error)
}

// ChatHandler runs one chat turn: validate, retrieve, assemble, generate.
// Stages are sequential; each depends on the previous stage's output.
type ChatHandler struct {
	retriever *retrieve.Retriever
	completer model.Completer
	assembler PromptAssembler
	budget    time.Duration
}

func NewChatHandler(retriever *retrieve.Retriever, completer model.Completer, assembler PromptAssembler, budget time.Duration) *ChatHandler {
	if budget <= 0 {
		budget = 30 * time.Second
	}
	return &ChatHandler{
		retriever: retriever,
		completer: completer,
		assembler: assembler,
		budget:    budget,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatRequest
	if err := c.BodyParser(&params); err != nil {
		return ErrBadRequest("invalid JSON request")
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		if _, ok := errs["Question"]; ok {
			return ErrBadRequest("Question is required")
		}
		return ErrBadRequest("history entries need a role of user or assistant and a content")
	}
	if strings.TrimSpace(params.Question) == "" {
		return ErrBadRequest("Question is required")
	}

	// The whole turn runs under one budget; a disconnected caller cancels
	// the remaining stages through the request context.
	ctx, cancel := context.WithTimeout(c.Context(), h.budget)
	defer cancel()

	results, err := h.retriever.Retrieve(ctx, params.Question)
	if err != nil {
		return err
	}

	prompt, err := h.assembler.Assemble(params.Question, results, params.History)
	if err != nil {
		return err
	}

	answer, err := h.completer.Complete(ctx, prompt)
	if err != nil {
		return err
	}

	resp := &types.ChatResponse{
		Answer:    answer,
		Sources:   formatSources(results),
		Timestamp: time.Now().UTC(),
	}
	return c.JSON(resp)
}

func formatSources(results []types.RetrievalResult) []types.Source {
	sources := make([]types.Source, len(results))
	for i, r := range results {
		sources[i] = types.Source{
			ID:      i + 1,
			Content: truncateExcerpt(r.Chunk.Content, excerptLimit),
			Source:  r.Chunk.Source,
			Metadata: map[string]any{
				"index": r.Chunk.Index,
				"score": r.Score,
			},
		}
	}
	return sources
}

func truncateExcerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
