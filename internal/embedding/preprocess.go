package embedding

import (
	"image"

	"golang.org/x/image/draw"
)

// CLIP image normalisation constants (per RGB channel).
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// PixelValues converts img into a CLIP pixel_values tensor laid out as [3, size, size] (CHW).
// The shorter side is resized to size with Catmull-Rom, the centre is cropped, and each
// channel is scaled to [0,1] and normalised with the CLIP mean and std.
func PixelValues(img image.Image, size int) []float32 {
	square := resizeAndCrop(img, size)
	out := make([]float32, 3*size*size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := square.PixOffset(x, y)
			i := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(square.Pix[off+c]) / 255
				out[c*plane+i] = (v - clipMean[c]) / clipStd[c]
			}
		}
	}
	return out
}

func resizeAndCrop(img image.Image, size int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var rw, rh int
	if w < h {
		rw, rh = size, max(size, h*size/w)
	} else {
		rw, rh = max(size, w*size/h), size
	}
	scaled := image.NewRGBA(image.Rect(0, 0, rw, rh))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)

	x0 := (rw - size) / 2
	y0 := (rh - size) / 2
	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(x0, y0), draw.Src)
	return out
}
