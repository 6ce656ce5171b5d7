// Package retrieve maps a free-text question to the top-k most similar
// chunks. It is a stateless pass-through that decouples query shaping from
// the store's concrete API; it adds no retry logic of its own.
package retrieve

import (
	"context"
	"errors"
	"fmt"

	"ragchat/model"
	"ragchat/store"
	"ragchat/types"
)

type Retriever struct {
	embedder model.Embedder
	store    store.VectorStorer
	topK     int
}

func New(embedder model.Embedder, storer store.VectorStorer, topK int) *Retriever {
	if topK <= 0 {
		topK = 3
	}
	return &Retriever{
		embedder: embedder,
		store:    storer,
		topK:     topK,
	}
}

// Retrieve returns at most topK results ordered by descending similarity.
// An empty result means the index holds nothing relevant; it is not an
// error.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]types.RetrievalResult, error) {
	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		if errors.Is(err, model.ErrAuth) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embed question: %v", store.ErrRetrievalUnavailable, err)
	}

	return r.store.Search(ctx, queryVec, r.topK)
}
