package retrieve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ragchat/model"
	"ragchat/store"
	"ragchat/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0}
	}
	return vecs, nil
}

type stubStore struct {
	results []types.RetrievalResult
	gotK    int
}

func (s *stubStore) UpsertChunks(context.Context, []types.Chunk) error { return nil }
func (s *stubStore) DeleteBySource(context.Context, string) error      { return nil }
func (s *stubStore) CountChunks(context.Context) (int, error)          { return 0, nil }

func (s *stubStore) Search(_ context.Context, _ []float32, k int) ([]types.RetrievalResult, error) {
	s.gotK = k
	if len(s.results) > k {
		return s.results[:k], nil
	}
	return s.results, nil
}

func TestRetrieve_PassesFixedK(t *testing.T) {
	st := &stubStore{
		results: []types.RetrievalResult{
			{Chunk: types.Chunk{Content: "a"}, Score: 0.9},
			{Chunk: types.Chunk{Content: "b"}, Score: 0.8},
			{Chunk: types.Chunk{Content: "c"}, Score: 0.7},
			{Chunk: types.Chunk{Content: "d"}, Score: 0.6},
		},
	}
	r := New(&stubEmbedder{}, st, 3)

	results, err := r.Retrieve(context.Background(), "question")

	require.NoError(t, err)
	assert.Equal(t, 3, st.gotK)
	assert.LessOrEqual(t, len(results), 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestRetrieve_EmptyIndexIsNotAnError(t *testing.T) {
	r := New(&stubEmbedder{}, &stubStore{}, 3)

	results, err := r.Retrieve(context.Background(), "question")

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_EmbedFailureMapsToRetrievalUnavailable(t *testing.T) {
	r := New(&stubEmbedder{err: fmt.Errorf("dial tcp: timeout")}, &stubStore{}, 3)

	_, err := r.Retrieve(context.Background(), "question")

	assert.ErrorIs(t, err, store.ErrRetrievalUnavailable)
}

func TestRetrieve_AuthFailurePassesThrough(t *testing.T) {
	authErr := fmt.Errorf("%w: 401", model.ErrAuth)
	r := New(&stubEmbedder{err: authErr}, &stubStore{}, 3)

	_, err := r.Retrieve(context.Background(), "question")

	assert.True(t, errors.Is(err, model.ErrAuth))
	assert.False(t, errors.Is(err, store.ErrRetrievalUnavailable))
}
