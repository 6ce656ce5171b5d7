package api

import (
	"context"
	"errors"
	"log/slog"

	"ragchat/config"
	"ragchat/model"
	"ragchat/store"

	"github.com/gofiber/fiber/v2"
)

// Error is the single envelope every failed request returns. Details carries
// the internal error chain and is populated only outside production.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, msg string) Error {
	return Error{
		Code:    code,
		Message: msg,
	}
}

func ErrBadRequest(msg string) Error {
	return NewError(fiber.StatusBadRequest, msg)
}

// NewErrorHandler translates pipeline errors into the envelope. Sentinel
// errors from the clients map to user-safe messages; internal detail never
// reaches a production response.
func NewErrorHandler(production bool) fiber.ErrorHandler {
	logger := slog.Default()

	return func(c *fiber.Ctx, err error) error {
		var apiErr Error
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.Code).JSON(apiErr)
		}

		resp := Error{Code: fiber.StatusInternalServerError}

		switch {
		case errors.Is(err, model.ErrAuth):
			resp.Message = "LLM provider API key is missing or invalid"
		case errors.Is(err, config.ErrConfiguration):
			resp.Message = "service is not configured correctly"
		case errors.Is(err, store.ErrRetrievalUnavailable):
			resp.Message = "retrieval service is unavailable"
		case errors.Is(err, model.ErrGeneration), errors.Is(err, model.ErrRateLimited):
			resp.Message = "the assistant could not produce an answer, please try again"
		case errors.Is(err, context.DeadlineExceeded):
			resp.Message = "request timed out"
		default:
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				resp.Code = fiberErr.Code
				resp.Message = fiberErr.Message
			} else {
				resp.Message = "internal server error"
			}
		}

		logger.Error("request failed",
			"path", c.Path(),
			"status", resp.Code,
			"error", err.Error())

		if !production {
			resp.Details = err.Error()
		}
		return c.Status(resp.Code).JSON(resp)
	}
}
