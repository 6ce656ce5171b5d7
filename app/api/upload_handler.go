package api

import (
	"path/filepath"

	"ragchat/ingest"

	"github.com/gofiber/fiber/v2"
)

// UploadHandler accepts new source documents into the documents directory.
// The watcher or the next ingestion run picks them up from there.
type UploadHandler struct {
	docsDir string
}

func NewUploadHandler(docsDir string) *UploadHandler {
	return &UploadHandler{
		docsDir: docsDir,
	}
}

func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest("file field is required")
	}

	name := filepath.Base(file.Filename)
	if !ingest.SupportedFile(name) {
		return ErrBadRequest("unsupported file type, expected .txt, .md or .pdf")
	}

	path := filepath.Join(h.docsDir, name)
	if err := c.SaveFile(file, path); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"file":    name,
	})
}
