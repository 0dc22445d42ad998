package globe

import (
	"image"
	"math"
)

// dotTextureSize is the side of the sprite used for overlay cells and points.
const dotTextureSize = 32

// DotTexture renders a white disc with a one-pixel soft edge. It is tinted per draw.
func DotTexture(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	center, maxDist := float64(size)/2.0, float64(size)/2.0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-center, float64(y)+0.5-center
			dist := math.Sqrt(dx*dx + dy*dy)
			val := clamp(maxDist-dist, 0, 1)
			off := (y*size + x) * 4
			a := uint8(val * 255)
			img.Pix[off+0], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = a, a, a, a
		}
	}
	return img
}
