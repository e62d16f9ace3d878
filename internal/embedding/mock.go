package embedding

import (
	"context"
	"image"
	"math"
	"strings"
	"unicode"

	"github.com/hyperjump/zukan/pkg/utils"
)

const mockModel = "mock-joint"

// MockEmbedder is a deterministic embedder for tests. A text vector is the normalized sum
// of per-word vectors derived from word hashes, so texts sharing words score higher.
// An image is embedded as the name of its nearest palette colour, which places a red
// image next to the text "red".
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockEmbedder{dimensions: dimensions}
}

// EmbedText returns a deterministic embedding built from the words of text.
func (e *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, textError(err)
	}
	emb := make([]float32, e.dimensions)
	words := mockWords(text)
	if len(words) == 0 {
		e.addWord(emb, text)
	}
	for _, w := range words {
		e.addWord(emb, w)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedImage embeds the colour name closest to the image's average colour.
func (e *MockEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, imageError(err)
	}
	return e.EmbedText(ctx, ColorName(img))
}

// EmbedBatchTexts calls EmbedText for each text.
func (e *MockEmbedder) EmbedBatchTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return embedTextsSerially(ctx, texts, e.EmbedText)
}

// EmbedBatchImages calls EmbedImage for each image.
func (e *MockEmbedder) EmbedBatchImages(ctx context.Context, imgs []image.Image) ([][]float32, error) {
	return embedImagesSerially(ctx, imgs, e.EmbedImage)
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *MockEmbedder) Model() string { return mockModel }

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

func (e *MockEmbedder) addWord(emb []float32, word string) {
	h := HashString(word) + 1
	for i := range emb {
		emb[i] += float32(math.Sin(float64(h * (i + 1))))
	}
}

func mockWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var palette = []struct {
	name    string
	r, g, b float64
}{
	{"black", 0, 0, 0},
	{"white", 255, 255, 255},
	{"gray", 128, 128, 128},
	{"red", 255, 0, 0},
	{"green", 0, 255, 0},
	{"blue", 0, 0, 255},
	{"yellow", 255, 255, 0},
	{"cyan", 0, 255, 255},
	{"magenta", 255, 0, 255},
}

// ColorName returns the palette colour nearest to the average colour of img.
func ColorName(img image.Image) string {
	b := img.Bounds()
	var sr, sg, sb, n float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sr += float64(r >> 8)
			sg += float64(g >> 8)
			sb += float64(bl >> 8)
			n++
		}
	}
	if n == 0 {
		return "black"
	}
	sr, sg, sb = sr/n, sg/n, sb/n

	best, bestDist := "", math.MaxFloat64
	for _, c := range palette {
		d := (sr-c.r)*(sr-c.r) + (sg-c.g)*(sg-c.g) + (sb-c.b)*(sb-c.b)
		if d < bestDist {
			best, bestDist = c.name, d
		}
	}
	return best
}
