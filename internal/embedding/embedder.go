// Package embedding maps text and images into one shared vector space (CLIP via ONNX)
// and provides a deterministic mock for tests.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/config"
)

// Embedder produces vectors for text and images in a joint embedding space.
// Vectors from EmbedText and EmbedImage are directly comparable.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)
	EmbedBatchTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedBatchImages(ctx context.Context, imgs []image.Image) ([][]float32, error)
	Dimensions() int
	// Model names the model that produced the vectors; it is recorded with saved indexes.
	Model() string
	Close() error
}

// CacheReporter is implemented by embedders that cache text vectors.
type CacheReporter interface {
	CacheStats() CacheStats
}

// ErrEmbedding matches any *Error with errors.Is.
var ErrEmbedding = errors.New("embedding failed")

// Error reports a failure to embed a single input.
type Error struct {
	// Input is "text" or "image".
	Input string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Input, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrEmbedding }

func textError(err error) error  { return &Error{Input: "text", Err: err} }
func imageError(err error) error { return &Error{Input: "image", Err: err} }

// New creates the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case config.EmbeddingMock:
		return NewMockEmbedder(cfg.Dimensions), nil
	case config.EmbeddingONNX, "":
		tok, err := NewTokenizer(cfg.TokenizerPath, logger)
		if err != nil {
			return nil, err
		}
		e, err := NewONNXEmbedder(ONNXOptions{
			TextModelPath:  cfg.TextModelPath,
			ImageModelPath: cfg.ImageModelPath,
			Model:          cfg.Model,
			Dimensions:     cfg.Dimensions,
			MaxTokens:      cfg.MaxTokens,
			ImageSize:      cfg.ImageSize,
			CacheSize:      cfg.CacheSize,
			Tokenizer:      tok,
		})
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("ONNX embedder ready",
				zap.String("model", cfg.Model),
				zap.Int("dimensions", cfg.Dimensions))
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, mock)", cfg.Provider)
	}
}

// embedTextsSerially calls embed for each text, stopping at the first error.
func embedTextsSerially(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func embedImagesSerially(ctx context.Context, imgs []image.Image, embed func(context.Context, image.Image) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(imgs))
	for i, img := range imgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := embed(ctx, img)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func checkImage(img image.Image) error {
	if img == nil {
		return imageError(errors.New("nil image"))
	}
	if img.Bounds().Empty() {
		return imageError(errors.New("image has no pixels"))
	}
	return nil
}
