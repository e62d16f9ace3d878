package indexer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/config"
	"github.com/hyperjump/zukan/internal/embedding"
	"github.com/hyperjump/zukan/internal/extract"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/pkg/utils"
)

// ProgressFunc receives the fraction of pages completed, in [0,1].
type ProgressFunc func(fraction float64)

// Pipeline ingests a document page by page into content units, embeddings and an ImageStore.
type Pipeline struct {
	embedder  embedding.Embedder
	segmenter *Segmenter
	logger    *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for per-page and per-unit events.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline that segments with cfg and embeds with embedder.
func NewPipeline(embedder embedding.Embedder, cfg config.IngestConfig, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{embedder: embedder}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.LoggerOrNop(p.logger)
	p.segmenter = NewSegmenter(cfg, p.logger)
	return p
}

// outcome is the result of embedding one unit: either a vector or the reason it was dropped.
type outcome struct {
	unit    models.ContentUnit
	vector  []float32
	payload string
	err     error
}

// fold accumulates embedded units and counts failures.
type fold struct {
	result *models.IngestResult
	logger *zap.Logger
}

func (f *fold) add(o outcome) {
	if o.err != nil {
		f.result.Dropped++
		f.logger.Warn("dropping unit",
			zap.Int("page", o.unit.Page),
			zap.String("kind", string(o.unit.Kind)),
			zap.String("image_id", o.unit.ImageID),
			zap.Error(o.err))
		return
	}
	f.result.Units = append(f.result.Units, o.unit)
	f.result.Embeddings = append(f.result.Embeddings, o.vector)
	if o.unit.Kind == models.KindImage {
		f.result.Images[o.unit.ImageID] = o.payload
	}
}

// IngestFile opens the document at path and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, path string, progress ProgressFunc) (*models.IngestResult, error) {
	doc, err := extract.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return p.Ingest(ctx, doc, progress)
}

// IngestBytes parses an in-memory document and ingests it.
func (p *Pipeline) IngestBytes(ctx context.Context, content []byte, progress ProgressFunc) (*models.IngestResult, error) {
	doc, err := extract.OpenBytes(content)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return p.Ingest(ctx, doc, progress)
}

// Ingest processes pages in order. Within a page, text units precede image units.
// Units whose embedding fails are logged and dropped; a document without any indexable
// content yields an empty result and no error. progress may be nil.
func (p *Pipeline) Ingest(ctx context.Context, doc extract.Document, progress ProgressFunc) (*models.IngestResult, error) {
	n := doc.NumPages()
	f := &fold{
		result: &models.IngestResult{Images: models.ImageStore{}, Pages: n},
		logger: p.logger,
	}
	for page := 0; page < n; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.ingestPage(ctx, doc, page, f)
		if progress != nil {
			progress(float64(page+1) / float64(n))
		}
	}
	p.logger.Info("document ingested",
		zap.Int("pages", n),
		zap.Int("units", len(f.result.Units)),
		zap.Int("images", f.result.Images.Len()),
		zap.Int("dropped", f.result.Dropped))
	return f.result, nil
}

func (p *Pipeline) ingestPage(ctx context.Context, doc extract.Document, page int, f *fold) {
	text, err := doc.PageText(page)
	if err != nil {
		p.logger.Warn("skipping page text", zap.Int("page", page), zap.Error(err))
	}
	for _, unit := range p.segmenter.SegmentText(page, text) {
		vec, err := p.embedder.EmbedText(ctx, unit.Content)
		f.add(outcome{unit: unit, vector: vec, err: p.checkVector(vec, err)})
	}

	raws, err := doc.PageImages(page)
	if err != nil {
		p.logger.Warn("skipping page images", zap.Int("page", page), zap.Error(err))
		return
	}
	for _, pi := range p.segmenter.SegmentImages(page, raws) {
		vec, err := p.embedder.EmbedImage(ctx, pi.Image)
		f.add(outcome{unit: pi.Unit, vector: vec, payload: pi.Encoded, err: p.checkVector(vec, err)})
	}
}

func (p *Pipeline) checkVector(vec []float32, err error) error {
	if err != nil {
		return err
	}
	if len(vec) != p.embedder.Dimensions() {
		return fmt.Errorf("embedding has %d dimensions, want %d", len(vec), p.embedder.Dimensions())
	}
	return nil
}
