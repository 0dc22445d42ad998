package globe

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

type gpuState struct {
	base *ebiten.Image
	dot  *ebiten.Image
}

func (s *gpuState) invalidateBase() {
	if s.base != nil {
		s.base.Deallocate()
		s.base = nil
	}
}

// Draw renders the globe and every layer onto screen. The base disc is rasterised on
// the CPU once per viewport and material and uploaded as a texture.
func (g *Globe) Draw(screen *ebiten.Image) {
	if g.gpu.base == nil {
		g.gpu.base = ebiten.NewImageFromImage(RenderBase(g.cam, g.material, g.lights, g.atmosphere, g.exposure))
	}
	if g.gpu.dot == nil {
		g.gpu.dot = ebiten.NewImageFromImage(DotTexture(dotTextureSize))
	}
	screen.DrawImage(g.gpu.base, nil)

	f := g.BuildFrame()
	g.drawSprites(screen, f.HexDots)
	for _, l := range f.Arcs {
		vector.StrokeLine(screen, float32(l.X0), float32(l.Y0), float32(l.X1), float32(l.Y1), float32(l.Width), l.Color, true)
	}
	for _, l := range f.Rings {
		vector.StrokeLine(screen, float32(l.X0), float32(l.Y0), float32(l.X1), float32(l.Y1), float32(l.Width), l.Color, true)
	}
	g.drawSprites(screen, f.Points)
}

func (g *Globe) drawSprites(screen *ebiten.Image, sprites []Sprite) {
	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	half := float64(dotTextureSize) / 2
	for _, s := range sprites {
		if s.Radius <= 0 || s.Color.A == 0 {
			continue
		}
		op.GeoM.Reset()
		op.GeoM.Translate(-half, -half)
		op.GeoM.Scale(s.Radius/half, s.Radius/half)
		op.GeoM.Translate(s.X, s.Y)
		op.ColorScale.Reset()
		a := float32(s.Color.A) / 255
		op.ColorScale.Scale(float32(s.Color.R)/255*a, float32(s.Color.G)/255*a, float32(s.Color.B)/255*a, a)
		screen.DrawImage(g.gpu.dot, op)
	}
}
