//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/zukan/pkg/utils"
)

// ONNXOptions configures the CLIP ONNX embedder.
type ONNXOptions struct {
	// TextModelPath is the CLIP text encoder exported to ONNX (inputs input_ids, attention_mask; output text_embeds).
	TextModelPath string
	// ImageModelPath is the CLIP vision encoder exported to ONNX (input pixel_values; output image_embeds).
	ImageModelPath string
	Model          string
	Dimensions     int
	MaxTokens      int
	ImageSize      int
	CacheSize      int
	// Tokenizer encodes text for the text encoder. HashTokenizer is used when nil.
	Tokenizer Tokenizer
}

// ONNXEmbedder runs CLIP's text and vision encoders with ONNX Runtime. It requires CGO and the
// onnxruntime shared library.
type ONNXEmbedder struct {
	opts      ONNXOptions
	tokenizer Tokenizer
	cache     *EmbeddingCache

	textSession *ort.AdvancedSession
	inputIDs    *ort.Tensor[int64]
	attnMask    *ort.Tensor[int64]
	textOut     *ort.Tensor[float32]

	imageSession *ort.AdvancedSession
	pixelValues  *ort.Tensor[float32]
	imageOut     *ort.Tensor[float32]

	// Tensors are reused across runs.
	textMu  sync.Mutex
	imageMu sync.Mutex
}

// NewONNXEmbedder creates both encoder sessions. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 77
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = 224
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("invalid embedding dimensions: %d", opts.Dimensions)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	tok := opts.Tokenizer
	if tok == nil {
		tok = &HashTokenizer{}
	}
	e := &ONNXEmbedder{
		opts:      opts,
		tokenizer: tok,
		cache:     NewEmbeddingCache(opts.CacheSize),
	}
	if err := e.initText(); err != nil {
		_ = e.Close()
		return nil, err
	}
	if err := e.initImage(); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *ONNXEmbedder) initText() error {
	var err error
	n := int64(e.opts.MaxTokens)
	if e.inputIDs, err = ort.NewEmptyTensor[int64](ort.NewShape(1, n)); err != nil {
		return fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attnMask, err = ort.NewEmptyTensor[int64](ort.NewShape(1, n)); err != nil {
		return fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.textOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(e.opts.Dimensions))); err != nil {
		return fmt.Errorf("failed to create text output tensor: %w", err)
	}
	e.textSession, err = ort.NewAdvancedSession(
		e.opts.TextModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"text_embeds"},
		[]ort.ArbitraryTensor{e.inputIDs, e.attnMask},
		[]ort.ArbitraryTensor{e.textOut},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create text session: %w", err)
	}
	return nil
}

func (e *ONNXEmbedder) initImage() error {
	var err error
	s := int64(e.opts.ImageSize)
	if e.pixelValues, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 3, s, s)); err != nil {
		return fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	if e.imageOut, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(e.opts.Dimensions))); err != nil {
		return fmt.Errorf("failed to create image output tensor: %w", err)
	}
	e.imageSession, err = ort.NewAdvancedSession(
		e.opts.ImageModelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{e.pixelValues},
		[]ort.ArbitraryTensor{e.imageOut},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create image session: %w", err)
	}
	return nil
}

// EmbedText returns the normalised text embedding, using the cache when available.
func (e *ONNXEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, textError(err)
	}

	e.textMu.Lock()
	defer e.textMu.Unlock()

	ids, mask, err := e.tokenizer.Tokenize(text, e.opts.MaxTokens)
	if err != nil {
		return nil, textError(err)
	}
	copy(e.inputIDs.GetData(), ids)
	copy(e.attnMask.GetData(), mask)
	if err := e.textSession.Run(); err != nil {
		return nil, textError(fmt.Errorf("inference failed: %w", err))
	}

	emb := make([]float32, e.opts.Dimensions)
	copy(emb, e.textOut.GetData())
	if !utils.NormalizeL2(emb) {
		return nil, textError(errors.New("model returned a zero or non-finite vector"))
	}
	e.cache.Set(text, emb)
	return emb, nil
}

// EmbedImage returns the normalised image embedding.
func (e *ONNXEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, imageError(err)
	}
	px := PixelValues(img, e.opts.ImageSize)

	e.imageMu.Lock()
	defer e.imageMu.Unlock()

	copy(e.pixelValues.GetData(), px)
	if err := e.imageSession.Run(); err != nil {
		return nil, imageError(fmt.Errorf("inference failed: %w", err))
	}

	emb := make([]float32, e.opts.Dimensions)
	copy(emb, e.imageOut.GetData())
	if !utils.NormalizeL2(emb) {
		return nil, imageError(errors.New("model returned a zero or non-finite vector"))
	}
	return emb, nil
}

// EmbedBatchTexts calls EmbedText for each text.
func (e *ONNXEmbedder) EmbedBatchTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return embedTextsSerially(ctx, texts, e.EmbedText)
}

// EmbedBatchImages calls EmbedImage for each image.
func (e *ONNXEmbedder) EmbedBatchImages(ctx context.Context, imgs []image.Image) ([][]float32, error) {
	return embedImagesSerially(ctx, imgs, e.EmbedImage)
}

// CacheStats reports the text embedding cache.
func (e *ONNXEmbedder) CacheStats() CacheStats {
	return e.cache.Stats()
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.opts.Dimensions
}

func (e *ONNXEmbedder) Model() string {
	return e.opts.Model
}

// Close destroys both sessions and their tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.textSession != nil {
		err = e.textSession.Destroy()
		e.textSession = nil
	}
	if e.imageSession != nil {
		if ierr := e.imageSession.Destroy(); err == nil {
			err = ierr
		}
		e.imageSession = nil
	}
	destroy := func(t interface{ Destroy() error }) {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.inputIDs != nil {
		destroy(e.inputIDs)
		e.inputIDs = nil
	}
	if e.attnMask != nil {
		destroy(e.attnMask)
		e.attnMask = nil
	}
	if e.textOut != nil {
		destroy(e.textOut)
		e.textOut = nil
	}
	if e.pixelValues != nil {
		destroy(e.pixelValues)
		e.pixelValues = nil
	}
	if e.imageOut != nil {
		destroy(e.imageOut)
		e.imageOut = nil
	}
	return err
}
