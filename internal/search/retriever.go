// Package search embeds queries and retrieves the nearest content units.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/embedding"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/internal/vector"
	"github.com/hyperjump/zukan/pkg/utils"
)

// ErrInvalidQueryKind is returned for a query kind other than text or image.
var ErrInvalidQueryKind = errors.New("invalid query kind")

// Retriever encodes a query with the embedder and searches the index. Text and image
// queries share the embedding space, so the search itself ignores the modality.
type Retriever struct {
	embedder embedding.Embedder
	index    vector.Index
	defaultK int
	logger   *zap.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithLogger sets a logger for query events.
func WithLogger(l *zap.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// WithDefaultK sets k for queries that do not specify one.
func WithDefaultK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.defaultK = k
		}
	}
}

// NewRetriever creates a retriever over index.
func NewRetriever(embedder embedding.Embedder, index vector.Index, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder: embedder,
		index:    index,
		defaultK: vector.DefaultK,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.LoggerOrNop(r.logger)
	return r
}

// Retrieve returns the k units most similar to the query, best first.
func (r *Retriever) Retrieve(ctx context.Context, query models.Query) ([]models.ContentUnit, error) {
	hits, err := r.RetrieveScored(ctx, query)
	if err != nil {
		return nil, err
	}
	return models.Units(hits), nil
}

// RetrieveScored is Retrieve with similarity scores and ranks.
func (r *Retriever) RetrieveScored(ctx context.Context, query models.Query) ([]models.SearchHit, error) {
	if err := ProcessQuery(&query, r.defaultK); err != nil {
		return nil, err
	}
	if !r.index.Initialized() {
		return nil, vector.ErrNotInitialized
	}

	var (
		vec []float32
		err error
	)
	switch query.Kind {
	case models.KindText:
		vec, err = r.embedder.EmbedText(ctx, query.Text)
	case models.KindImage:
		vec, err = r.embedder.EmbedImage(ctx, query.Image)
	}
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.index.Search(ctx, vec, query.K)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("retrieved",
		zap.String("kind", string(query.Kind)),
		zap.Int("k", query.K),
		zap.Int("hits", len(hits)))
	return hits, nil
}
