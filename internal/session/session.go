// Package session owns the index and image store of the loaded document and serializes
// every operation on them.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/config"
	"github.com/hyperjump/zukan/internal/embedding"
	"github.com/hyperjump/zukan/internal/extract"
	"github.com/hyperjump/zukan/internal/generate"
	"github.com/hyperjump/zukan/internal/indexer"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/internal/search"
	"github.com/hyperjump/zukan/internal/storage"
	"github.com/hyperjump/zukan/internal/vector"
	"github.com/hyperjump/zukan/pkg/utils"
)

// ErrNoIndexableContent is returned when a document parsed but produced no units.
var ErrNoIndexableContent = errors.New("document contains no indexable content")

// Session holds one document's index and image store. All methods are safe for
// concurrent use and run one at a time.
type Session struct {
	mu sync.Mutex

	index     vector.Index
	images    models.ImageStore
	embedder  embedding.Embedder
	pipeline  *indexer.Pipeline
	retriever *search.Retriever
	answerer  *generate.Answerer
	openRepo  storage.OpenFunc
	logger    *zap.Logger

	document string
	pages    int
	dropped  int
	savedDir string
}

// Option configures a Session.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	index     vector.Index
	generator generate.Generator
	openRepo  storage.OpenFunc
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithIndex replaces the default in-memory index.
func WithIndex(idx vector.Index) Option {
	return func(o *options) { o.index = idx }
}

// WithGenerator sets the answer generator. Without one, Ask and AskImage fail with a
// generation error while retrieval keeps working.
func WithGenerator(g generate.Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithImageRepository sets how the image database of an index directory is opened.
// The default is storage.OpenImages.
func WithImageRepository(open storage.OpenFunc) Option {
	return func(o *options) { o.openRepo = open }
}

// New creates an empty session around embedder.
func New(embedder embedding.Embedder, cfg *config.Config, opts ...Option) (*Session, error) {
	if embedder == nil {
		return nil, errors.New("session requires an embedder")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := utils.LoggerOrNop(o.logger)

	idx := o.index
	if idx == nil {
		mem, err := vector.NewMemoryIndex(embedder.Dimensions(),
			vector.WithDefaultK(cfg.Index.DefaultK),
			vector.WithModel(embedder.Model()))
		if err != nil {
			return nil, err
		}
		idx = mem
	}
	openRepo := o.openRepo
	if openRepo == nil {
		openRepo = storage.OpenImages
	}
	if idx.Dimensions() != embedder.Dimensions() {
		return nil, fmt.Errorf("index dimension %d does not match embedder dimension %d", idx.Dimensions(), embedder.Dimensions())
	}

	return &Session{
		index:     idx,
		images:    models.ImageStore{},
		embedder:  embedder,
		pipeline:  indexer.NewPipeline(embedder, cfg.Ingest, indexer.WithLogger(logger)),
		retriever: search.NewRetriever(embedder, idx, search.WithLogger(logger), search.WithDefaultK(cfg.Index.DefaultK)),
		answerer:  generate.NewAnswerer(o.generator, logger),
		openRepo:  openRepo,
		logger:    logger,
	}, nil
}

// IngestReport summarizes a successful ingestion.
type IngestReport struct {
	Document   string        `json:"document"`
	Pages      int           `json:"pages"`
	Units      int           `json:"units"`
	TextUnits  int           `json:"text_units"`
	ImageUnits int           `json:"image_units"`
	Dropped    int           `json:"dropped"`
	IndexID    string        `json:"index_id"`
	Duration   time.Duration `json:"duration_ns"`
}

// IngestFile ingests the PDF at path, replacing the current document.
func (s *Session) IngestFile(ctx context.Context, path string, progress indexer.ProgressFunc) (*IngestReport, error) {
	doc, err := extract.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return s.Ingest(ctx, filepath.Base(path), doc, progress)
}

// IngestBytes ingests an in-memory PDF, replacing the current document.
func (s *Session) IngestBytes(ctx context.Context, name string, content []byte, progress indexer.ProgressFunc) (*IngestReport, error) {
	doc, err := extract.OpenBytes(content)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return s.Ingest(ctx, name, doc, progress)
}

// Ingest runs the pipeline over doc and swaps in the new index and image store. When the
// document yields no units, or the build fails, the previous index stays in place.
func (s *Session) Ingest(ctx context.Context, name string, doc extract.Document, progress indexer.ProgressFunc) (*IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	res, err := s.pipeline.Ingest(ctx, doc, progress)
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		s.logger.Warn("document has no indexable content",
			zap.String("document", name),
			zap.Int("pages", res.Pages),
			zap.Int("dropped", res.Dropped))
		return nil, fmt.Errorf("%s: %w", name, ErrNoIndexableContent)
	}
	if err := s.index.Build(ctx, res.Units, res.Embeddings); err != nil {
		return nil, err
	}
	s.images = res.Images
	s.document = name
	s.pages = res.Pages
	s.dropped = res.Dropped
	s.savedDir = ""

	counts := models.CountByKind(res.Units)
	report := &IngestReport{
		Document:   name,
		Pages:      res.Pages,
		Units:      len(res.Units),
		TextUnits:  counts[models.KindText],
		ImageUnits: counts[models.KindImage],
		Dropped:    res.Dropped,
		IndexID:    s.index.ID(),
		Duration:   time.Since(start),
	}
	s.logger.Info("index built",
		zap.String("document", name),
		zap.String("index_id", report.IndexID),
		zap.Int("units", report.Units),
		zap.Duration("took", report.Duration))
	return report, nil
}

// Search returns the units most similar to query, with scores.
func (s *Session) Search(ctx context.Context, query models.Query) ([]models.SearchHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retriever.RetrieveScored(ctx, query)
}

// Ask answers a text question from the k most similar units (k <= 0 uses the default).
func (s *Session) Ask(ctx context.Context, question string, k int) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	hits, err := s.retriever.RetrieveScored(ctx, models.Query{Kind: models.KindText, Text: question, K: k})
	if err != nil {
		return nil, err
	}
	text, err := s.answerer.AnswerText(ctx, question, models.Units(hits), s.images)
	if err != nil {
		return nil, err
	}
	return &models.Answer{
		Query:     question,
		Kind:      models.KindText,
		Text:      text,
		Sources:   hits,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// AskImage answers about img from the k units most similar to it. question is optional.
func (s *Session) AskImage(ctx context.Context, img image.Image, question string, k int) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	hits, err := s.retriever.RetrieveScored(ctx, models.Query{Kind: models.KindImage, Image: img, Question: question, K: k})
	if err != nil {
		return nil, err
	}
	text, err := s.answerer.AnswerImage(ctx, img, question, models.Units(hits), s.images)
	if err != nil {
		return nil, err
	}
	return &models.Answer{
		Query:     question,
		Kind:      models.KindImage,
		Text:      text,
		Sources:   hits,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

// Image returns the encoded payload of an image unit of the current document.
func (s *Session) Image(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images.Get(id)
}

// Close releases the embedder.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.embedder.Close()
}
