package images

import (
	"image"
	"image/color"
	"image/draw"
)

// Compact returns img converted to 8-bit gray when every pixel is opaque and
// has R==G==B, otherwise img itself.
func Compact(img image.Image) image.Image {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return img
	}
	if !opaqueGray(img) {
		return img
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

func opaqueGray(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A != 0xff || c.R != c.G || c.G != c.B {
				return false
			}
		}
	}
	return true
}
