package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Validater interface {
	Validate() map[string]string
}

// ConversationTurn is one entry of the client-supplied chat history. History
// is not persisted server side; the client carries it on every request.
type ConversationTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

type ChatRequest struct {
	Question string             `json:"question" validate:"required"`
	History  []ConversationTurn `json:"history,omitempty" validate:"dive"`
}

type ChatResponse struct {
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	Timestamp time.Time `json:"timestamp"`
}

type Source struct {
	ID       int            `json:"id"`
	Content  string         `json:"content"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata"`
}

type IngestResponse struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	Files         []string  `json:"files"`
	Chunks        int       `json:"chunks"`
	FailedBatches []int     `json:"failed_batches,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type IngestStatus struct {
	Exists bool     `json:"exists"`
	Files  []string `json:"files"`
	Count  int      `json:"count"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *ChatRequest) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}
