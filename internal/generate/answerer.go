package generate

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/pkg/utils"
)

// Answerer composes a prompt from retrieved units and makes exactly one generator call.
type Answerer struct {
	composer  *Composer
	generator Generator
	logger    *zap.Logger
}

// NewAnswerer creates an answerer. logger may be nil.
func NewAnswerer(generator Generator, logger *zap.Logger) *Answerer {
	logger = utils.LoggerOrNop(logger)
	return &Answerer{
		composer:  NewComposer(logger),
		generator: generator,
		logger:    logger,
	}
}

// AnswerText answers a text question from the retrieved units.
func (a *Answerer) AnswerText(ctx context.Context, question string, units []models.ContentUnit, images models.ImageStore) (string, error) {
	return a.generate(ctx, a.composer.TextQuery(question, units, images))
}

// AnswerImage answers about input, optionally guided by question, from the retrieved units.
func (a *Answerer) AnswerImage(ctx context.Context, input image.Image, question string, units []models.ContentUnit, images models.ImageStore) (string, error) {
	blocks, err := a.composer.ImageQuery(input, question, units, images)
	if err != nil {
		return "", err
	}
	return a.generate(ctx, blocks)
}

func (a *Answerer) generate(ctx context.Context, blocks []models.ContentBlock) (string, error) {
	if a.generator == nil {
		return "", &Error{Provider: "none", Err: fmt.Errorf("no generator configured")}
	}
	a.logger.Debug("calling generator", zap.Int("blocks", len(blocks)), zap.Int("images", countImages(blocks)))
	text, err := a.generator.Generate(ctx, blocks)
	if err != nil {
		var genErr *Error
		if !errors.As(err, &genErr) {
			err = &Error{Provider: "generator", Err: err}
		}
		return "", err
	}
	return text, nil
}

func countImages(blocks []models.ContentBlock) int {
	n := 0
	for _, b := range blocks {
		if b.Type == models.BlockImage {
			n++
		}
	}
	return n
}
