package api

import (
	"errors"
	"fmt"
	"time"

	"ragchat/ingest"
	"ragchat/types"

	"github.com/gofiber/fiber/v2"
)

type IngestHandler struct {
	service *ingest.Service
}

func NewIngestHandler(service *ingest.Service) *IngestHandler {
	return &IngestHandler{
		service: service,
	}
}

// HandleIngest runs a full ingestion of the documents directory.
func (h *IngestHandler) HandleIngest(c *fiber.Ctx) error {
	res, err := h.service.Run(c.UserContext())
	if err != nil {
		if errors.Is(err, ingest.ErrNoDocuments) {
			return NewError(fiber.StatusNotFound, "no documents found")
		}
		return err
	}

	msg := fmt.Sprintf("ingested %d chunks from %d files", res.Chunks, len(res.Files))
	if len(res.FailedBatches) > 0 {
		msg = fmt.Sprintf("%s, %d batches failed", msg, len(res.FailedBatches))
	}

	return c.JSON(types.IngestResponse{
		Success:       true,
		Message:       msg,
		Files:         res.Files,
		Chunks:        res.Chunks,
		FailedBatches: res.FailedBatches,
		Timestamp:     time.Now().UTC(),
	})
}

// HandleStatus reports the documents directory and index size. No side
// effects.
func (h *IngestHandler) HandleStatus(c *fiber.Ctx) error {
	status, err := h.service.Status(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(status)
}
