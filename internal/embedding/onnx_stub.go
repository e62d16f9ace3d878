//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
	"image"
)

// ONNXOptions configures the CLIP ONNX embedder (see onnx.go).
type ONNXOptions struct {
	TextModelPath  string
	ImageModelPath string
	Model          string
	Dimensions     int
	MaxTokens      int
	ImageSize      int
	CacheSize      int
	Tokenizer      Tokenizer
}

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

var errNoCGO = errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ ONNXOptions) (*ONNXEmbedder, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return nil, textError(errNoCGO)
}

func (e *ONNXEmbedder) EmbedImage(context.Context, image.Image) ([]float32, error) {
	return nil, imageError(errNoCGO)
}

func (e *ONNXEmbedder) EmbedBatchTexts(context.Context, []string) ([][]float32, error) {
	return nil, textError(errNoCGO)
}

func (e *ONNXEmbedder) EmbedBatchImages(context.Context, []image.Image) ([][]float32, error) {
	return nil, imageError(errNoCGO)
}

func (e *ONNXEmbedder) CacheStats() CacheStats { return CacheStats{} }
func (e *ONNXEmbedder) Dimensions() int        { return 0 }
func (e *ONNXEmbedder) Model() string   { return "" }
func (e *ONNXEmbedder) Close() error    { return nil }
