// Package generate composes retrieved content into a multimodal prompt and obtains an
// answer from a vision-capable model.
package generate

import (
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/pkg/utils"
)

// Composer builds the content blocks sent to the generator.
type Composer struct {
	logger *zap.Logger
}

// NewComposer creates a composer. logger may be nil.
func NewComposer(logger *zap.Logger) *Composer {
	return &Composer{logger: utils.LoggerOrNop(logger)}
}

// TextQuery builds the prompt for a text question: the question, the retrieved text
// excerpts labelled with their page, then each retrieved image present in images.
func (c *Composer) TextQuery(question string, units []models.ContentUnit, images models.ImageStore) []models.ContentBlock {
	texts, imgs := splitByKind(units)

	blocks := []models.ContentBlock{
		models.TextBlock(fmt.Sprintf("Question: %s\n\nContext:\n", question)),
	}
	if len(texts) > 0 {
		blocks = append(blocks, models.TextBlock("Text excerpts:\n"+joinExcerpts(texts)+"\n"))
	}
	for _, u := range imgs {
		data, ok := c.lookup(images, u)
		if !ok {
			continue
		}
		blocks = append(blocks,
			models.TextBlock(fmt.Sprintf("\n[Image from page %d]:\n", u.DisplayPage())),
			models.ImageBlock(data, utils.PNGMime),
		)
	}
	blocks = append(blocks, models.TextBlock("\n\nPlease answer the question based on the provided text and images."))
	return blocks
}

// ImageQuery builds the prompt for an image query. The input image comes first, then the
// related document content. question is optional.
func (c *Composer) ImageQuery(input image.Image, question string, units []models.ContentUnit, images models.ImageStore) ([]models.ContentBlock, error) {
	encoded, err := utils.EncodePNGBase64(utils.ToRGB(input))
	if err != nil {
		return nil, fmt.Errorf("encode input image: %w", err)
	}
	question = strings.TrimSpace(question)

	var intro, closing string
	if question == "" {
		intro = "I have provided you with an input image and relevant content from a document. " +
			"Please analyze the input image and provide information based on the related content found in the document.\n\nInput Image:"
		closing = "\n\nBased on the input image and the related content from the document, please provide a comprehensive " +
			"answer about what the input image shows and how it relates to the information in the document."
	} else {
		intro = "I have provided you with an input image and relevant content from a document. " +
			"Please answer the following specific question about the image:\n\nQuestion: " + question + "\n\nInput Image:"
		closing = fmt.Sprintf("\n\nPlease provide a detailed answer to the question: '%s' based on the input image "+
			"and the related content from the document.", question)
	}

	blocks := []models.ContentBlock{
		models.TextBlock(intro),
		models.ImageBlock(encoded, utils.PNGMime),
		models.TextBlock("\n\nRelated content from the document:\n"),
	}

	texts, imgs := splitByKind(units)
	if len(texts) > 0 {
		blocks = append(blocks, models.TextBlock("Text content:\n"+joinExcerpts(texts)+"\n"))
	}
	if len(imgs) > 0 {
		blocks = append(blocks, models.TextBlock("\nRelated images found in the document:\n"))
		for _, u := range imgs {
			data, ok := c.lookup(images, u)
			if !ok {
				continue
			}
			blocks = append(blocks,
				models.TextBlock(fmt.Sprintf("[Image from page %d]:\n", u.DisplayPage())),
				models.ImageBlock(data, utils.PNGMime),
			)
		}
	}
	blocks = append(blocks, models.TextBlock(closing))
	return blocks, nil
}

// lookup returns the payload of an image unit. Units whose image is not in the store are
// skipped.
func (c *Composer) lookup(images models.ImageStore, u models.ContentUnit) (string, bool) {
	if u.ImageID == "" {
		return "", false
	}
	data, ok := images.Get(u.ImageID)
	if !ok {
		c.logger.Debug("image missing from store", zap.String("image_id", u.ImageID))
	}
	return data, ok
}

func splitByKind(units []models.ContentUnit) (texts, imgs []models.ContentUnit) {
	for _, u := range units {
		switch u.Kind {
		case models.KindText:
			texts = append(texts, u)
		case models.KindImage:
			imgs = append(imgs, u)
		}
	}
	return texts, imgs
}

func joinExcerpts(units []models.ContentUnit) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = fmt.Sprintf("[Page %d]: %s", u.DisplayPage(), u.Content)
	}
	return strings.Join(parts, "\n\n")
}
