package utils

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"within bounds", 800, 600, 800, 600},
		{"wide", 2048, 1024, 1024, 512},
		{"tall", 1000, 3000, 341, 1024},
		{"exact", 1024, 1024, 1024, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FitWithin(image.NewRGBA(image.Rect(0, 0, tt.w, tt.h)), 1024, 1024)
			assert.Equal(t, tt.wantW, out.Bounds().Dx())
			assert.Equal(t, tt.wantH, out.Bounds().Dy())
		})
	}
}

func TestToRGB_OpaqueAndRebased(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 9, 9))
	src.Set(5, 5, color.NRGBA{R: 255, A: 255})
	out := ToRGB(src)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	r, g, b, a := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
	// fully transparent pixels become white
	r, g, b, a = out.At(1, 1).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.RGBA{G: 200, A: 255})
	encoded, err := EncodePNGBase64(img)
	require.NoError(t, err)

	data, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	decoded, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
	_, g, _, _ := decoded.At(2, 1).RGBA()
	assert.Equal(t, uint32(200)<<8|200, g)
}

func TestDecodeImage_Invalid(t *testing.T) {
	_, err := DecodeImage(nil)
	assert.Error(t, err)
	_, err = DecodeImage([]byte("not an image"))
	assert.Error(t, err)
}
