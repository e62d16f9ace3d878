package search

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/zukan/internal/embedding"
	"github.com/hyperjump/zukan/internal/models"
	"github.com/hyperjump/zukan/internal/vector"
)

const testDims = 128

func solid(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// setup indexes two text units and two image units.
func setup(t *testing.T) (*Retriever, *vector.MemoryIndex) {
	t.Helper()
	ctx := context.Background()
	emb := embedding.NewMockEmbedder(testDims)
	idx, err := vector.NewMemoryIndex(testDims)
	require.NoError(t, err)

	units := []models.ContentUnit{
		models.NewTextUnit("Revenue figures for the third quarter", 0),
		models.NewTextUnit("Penguins huddle together in winter", 1),
		models.NewImageUnit("page_1_img_0", 1),
		models.NewImageUnit("page_2_img_0", 2),
	}
	vecs := make([][]float32, 0, len(units))
	for _, u := range units[:2] {
		v, err := emb.EmbedText(ctx, u.Content)
		require.NoError(t, err)
		vecs = append(vecs, v)
	}
	for _, c := range []color.Color{color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255}} {
		v, err := emb.EmbedImage(ctx, solid(c))
		require.NoError(t, err)
		vecs = append(vecs, v)
	}
	require.NoError(t, idx.Build(ctx, units, vecs))
	return NewRetriever(emb, idx, WithDefaultK(3)), idx
}

func TestRetriever_TextQuery(t *testing.T) {
	r, _ := setup(t)
	units, err := r.Retrieve(context.Background(), models.Query{Kind: models.KindText, Text: "quarter revenue", K: 1})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, 0, units[0].Page)
}

func TestRetriever_TextQueryFindsImage(t *testing.T) {
	r, _ := setup(t)
	units, err := r.Retrieve(context.Background(), models.Query{Kind: models.KindText, Text: "blue", K: 1})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "page_2_img_0", units[0].ImageID)
}

func TestRetriever_ImageQuery(t *testing.T) {
	r, _ := setup(t)
	hits, err := r.RetrieveScored(context.Background(), models.Query{
		Kind:  models.KindImage,
		Image: solid(color.RGBA{R: 240, G: 20, B: 20, A: 255}),
		K:     2,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "page_1_img_0", hits[0].Unit.ImageID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestRetriever_DefaultAndClampedK(t *testing.T) {
	r, _ := setup(t)
	units, err := r.Retrieve(context.Background(), models.Query{Kind: models.KindText, Text: "anything"})
	require.NoError(t, err)
	assert.Len(t, units, 3)

	units, err = r.Retrieve(context.Background(), models.Query{Kind: models.KindText, Text: "anything", K: 10})
	require.NoError(t, err)
	assert.Len(t, units, 4)
}

func TestRetriever_InvalidKind(t *testing.T) {
	r, _ := setup(t)
	_, err := r.Retrieve(context.Background(), models.Query{Kind: "audio", Text: "hello"})
	assert.ErrorIs(t, err, ErrInvalidQueryKind)
}

func TestRetriever_InvalidPayload(t *testing.T) {
	r, _ := setup(t)
	_, err := r.Retrieve(context.Background(), models.Query{Kind: models.KindText, Text: "  "})
	assert.ErrorIs(t, err, models.ErrInvalidQuery)
	_, err = r.Retrieve(context.Background(), models.Query{Kind: models.KindImage})
	assert.ErrorIs(t, err, models.ErrInvalidQuery)
}

func TestRetriever_NotInitialized(t *testing.T) {
	idx, err := vector.NewMemoryIndex(testDims)
	require.NoError(t, err)
	r := NewRetriever(embedding.NewMockEmbedder(testDims), idx)
	_, err = r.Retrieve(context.Background(), models.Query{Kind: models.KindText, Text: "hello"})
	assert.ErrorIs(t, err, vector.ErrNotInitialized)
}
