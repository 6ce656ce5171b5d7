// Package ingest reads source documents, splits them into overlapping
// chunks, embeds them in batches and writes them to the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"ragchat/model"
	"ragchat/store"
	"ragchat/types"
)

// ErrNoDocuments means the documents directory is missing or holds no
// supported files.
var ErrNoDocuments = errors.New("no documents found")

type Service struct {
	store        store.VectorStorer
	embedder     model.Embedder
	docsDir      string
	chunkSize    int
	chunkOverlap int
	batchSize    int
	logger       *slog.Logger
}

// Result reports one ingestion run. FailedBatches holds the indices of
// batches that failed after a retry; the run continues past them.
type Result struct {
	Files         []string
	Chunks        int
	FailedBatches []int
}

func NewService(storer store.VectorStorer, embedder model.Embedder, docsDir string, chunkSize, chunkOverlap, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Service{
		store:        storer,
		embedder:     embedder,
		docsDir:      docsDir,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		batchSize:    batchSize,
		logger:       slog.Default(),
	}
}

// Run ingests every supported file in the documents directory.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, s.docsDir)
	}

	var chunks []types.Chunk
	for _, name := range files {
		fileChunks, err := s.chunkFile(name)
		if err != nil {
			return nil, fmt.Errorf("process %s: %w", name, err)
		}
		// Replace the file's previous index entries before re-writing.
		if err := s.store.DeleteBySource(ctx, name); err != nil {
			return nil, err
		}
		chunks = append(chunks, fileChunks...)
	}

	failed := s.writeBatches(ctx, chunks)

	s.logger.Info("ingestion finished",
		"files", len(files),
		"chunks", len(chunks),
		"failed_batches", len(failed))

	return &Result{
		Files:         files,
		Chunks:        len(chunks),
		FailedBatches: failed,
	}, nil
}

// IngestFile re-ingests a single file, replacing its previous chunks.
func (s *Service) IngestFile(ctx context.Context, path string) (int, error) {
	name := filepath.Base(path)
	if !SupportedFile(name) {
		return 0, fmt.Errorf("unsupported file type: %s", name)
	}

	chunks, err := s.chunkFile(name)
	if err != nil {
		return 0, err
	}
	if err := s.store.DeleteBySource(ctx, name); err != nil {
		return 0, err
	}

	if failed := s.writeBatches(ctx, chunks); len(failed) > 0 {
		return len(chunks), fmt.Errorf("%d of %d batches failed for %s", len(failed), batchCount(len(chunks), s.batchSize), name)
	}
	return len(chunks), nil
}

// Status reports the documents directory without side effects.
func (s *Service) Status(ctx context.Context) (*types.IngestStatus, error) {
	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountChunks(ctx)
	if err != nil {
		return nil, err
	}

	return &types.IngestStatus{
		Exists: len(files) > 0,
		Files:  files,
		Count:  count,
	}, nil
}

func (s *Service) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read documents directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !SupportedFile(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

func (s *Service) chunkFile(name string) ([]types.Chunk, error) {
	text, err := extractText(filepath.Join(s.docsDir, name))
	if err != nil {
		return nil, err
	}

	parts := SplitText(text, s.chunkSize, s.chunkOverlap)
	chunks := make([]types.Chunk, len(parts))
	for i, content := range parts {
		chunks[i] = types.Chunk{
			ID:      types.NewChunkID(name, i),
			Source:  name,
			Index:   i,
			Content: content,
		}
	}
	return chunks, nil
}

// writeBatches embeds and upserts chunks in batches. A failed batch is
// retried once; a second failure is recorded and the run moves on.
func (s *Service) writeBatches(ctx context.Context, chunks []types.Chunk) []int {
	var failed []int

	for batchIdx := 0; batchIdx*s.batchSize < len(chunks); batchIdx++ {
		lo := batchIdx * s.batchSize
		hi := lo + s.batchSize
		if hi > len(chunks) {
			hi = len(chunks)
		}
		batch := chunks[lo:hi]

		err := s.writeBatch(ctx, batch)
		if err != nil {
			s.logger.Warn("batch write failed, retrying once", "batch", batchIdx, "error", err)
			err = s.writeBatch(ctx, batch)
		}
		if err != nil {
			s.logger.Error("batch write failed after retry", "batch", batchIdx, "error", err)
			failed = append(failed, batchIdx)
		}
	}
	return failed
}

func (s *Service) writeBatch(ctx context.Context, batch []types.Chunk) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Content
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embeddings), len(batch))
	}
	for i := range batch {
		batch[i].Embedding = embeddings[i]
	}

	return s.store.UpsertChunks(ctx, batch)
}

func batchCount(n, size int) int {
	if size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
