package indexer

import (
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/config"
	"github.com/hyperjump/zukan/internal/extract"
	"github.com/hyperjump/zukan/internal/fileid"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/pkg/utils"
)

// PageImage is an image unit ready for embedding, with its PNG payload for the ImageStore.
type PageImage struct {
	Unit  models.ContentUnit
	Image *image.RGBA
	// Encoded is the base64 PNG payload.
	Encoded string
}

// Segmenter turns one page into content units.
type Segmenter struct {
	chunker   *Chunker
	maxWidth  int
	maxHeight int
	logger    *zap.Logger
}

// NewSegmenter creates a segmenter from ingest settings. logger may be nil.
func NewSegmenter(cfg config.IngestConfig, logger *zap.Logger) *Segmenter {
	return &Segmenter{
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		maxWidth:  cfg.MaxImageWidth,
		maxHeight: cfg.MaxImageHeight,
		logger:    utils.LoggerOrNop(logger),
	}
}

// SegmentText chunks the page text into text units. Whitespace-only text yields none.
func (s *Segmenter) SegmentText(page int, text string) []models.ContentUnit {
	text = NormalizePageText(text)
	if text == "" {
		return nil
	}
	chunks := s.chunker.Chunk(text)
	units := make([]models.ContentUnit, 0, len(chunks))
	for _, ch := range chunks {
		if strings.TrimSpace(ch) == "" {
			continue
		}
		units = append(units, models.NewTextUnit(ch, page))
	}
	return units
}

// SegmentImages decodes, normalises and re-encodes the page's images. The i-th raw image
// gets id page_{page}_img_{i}; an image that fails is logged and skipped without shifting
// the ids of the others.
func (s *Segmenter) SegmentImages(page int, raws []extract.RawImage) []PageImage {
	out := make([]PageImage, 0, len(raws))
	for i, raw := range raws {
		id := fileid.ImageID(page, i)
		img, err := s.prepareImage(raw)
		if err != nil {
			s.logger.Warn("skipping image",
				zap.Int("page", page),
				zap.String("image_id", id),
				zap.String("format", raw.Format),
				zap.Error(err))
			continue
		}
		encoded, err := utils.EncodePNGBase64(img)
		if err != nil {
			s.logger.Warn("skipping image", zap.Int("page", page), zap.String("image_id", id), zap.Error(err))
			continue
		}
		out = append(out, PageImage{
			Unit:    models.NewImageUnit(id, page),
			Image:   img,
			Encoded: encoded,
		})
	}
	return out
}

func (s *Segmenter) prepareImage(raw extract.RawImage) (img *image.RGBA, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("decode image: %v", r)
		}
	}()
	decoded, err := utils.DecodeImage(raw.Data)
	if err != nil {
		return nil, err
	}
	return utils.FitWithin(utils.ToRGB(decoded), s.maxWidth, s.maxHeight), nil
}
