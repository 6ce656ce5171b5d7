package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragchat/ingest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ingestApp(t *testing.T, svc *ingest.Service) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(false)})
	h := NewIngestHandler(svc)
	app.Post("/api/v1/ingest", h.HandleIngest)
	app.Get("/api/v1/ingest", h.HandleStatus)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp, decoded
}

func TestHandleIngest_NoDocuments(t *testing.T) {
	svc := ingest.NewService(&stubStore{}, &stubEmbedder{}, t.TempDir(), 800, 100, 32)
	app := ingestApp(t, svc)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/ingest")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no documents found", body["error"])
}

func TestHandleIngest_Success(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "services.txt"), []byte(strings.Repeat("a", 2000)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pricing.txt"), []byte(strings.Repeat("b", 2000)), 0644))

	svc := ingest.NewService(&stubStore{}, &stubEmbedder{}, dir, 800, 100, 32)
	app := ingestApp(t, svc)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/ingest")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(6), body["chunks"])
	assert.NotEmpty(t, body["timestamp"])

	files, ok := body["files"].([]any)
	require.True(t, ok)
	assert.Len(t, files, 2)
}

func TestHandleStatus(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("hello"), 0644))

	svc := ingest.NewService(&stubStore{}, &stubEmbedder{}, dir, 800, 100, 32)
	app := ingestApp(t, svc)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/ingest")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["exists"])

	files, ok := body["files"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"notes.md"}, files)
}

func TestHandleStatus_EmptyDirectory(t *testing.T) {
	svc := ingest.NewService(&stubStore{}, &stubEmbedder{}, t.TempDir(), 800, 100, 32)
	app := ingestApp(t, svc)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/ingest")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["exists"])
	assert.Equal(t, float64(0), body["count"])
}
