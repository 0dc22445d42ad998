package globeengine

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sudorandom/arc-globe/pkg/config"
)

var (
	panelFill   = color.RGBA{0, 0, 0, 100}
	panelStroke = color.RGBA{36, 42, 53, 255}
	accent      = color.RGBA{6, 182, 212, 255}
)

const maxLegendEntries = 15

func (e *Engine) drawLegend(screen *ebiten.Image) {
	if e.fontSource == nil {
		return
	}
	margin, fontSize, spacing, swatch := 40.0, 14.0, 22.0, 10.0
	if e.Width > 2000 {
		margin, fontSize, spacing, swatch = 80.0, 28.0, 44.0, 20.0
	}

	entries := e.Legend
	if len(entries) > maxLegendEntries {
		entries = entries[:maxLegendEntries]
	}
	face := &text.GoTextFace{Source: e.fontSource, Size: fontSize}
	titleFace := &text.GoTextFace{Source: e.fontSource, Size: fontSize * 0.8}

	boxW := fontSize * 26
	boxH := spacing*float64(len(entries)+1) + fontSize
	x, y := margin, margin

	vector.DrawFilledRect(screen, float32(x-10), float32(y-10), float32(boxW), float32(boxH), panelFill, false)
	vector.StrokeRect(screen, float32(x-10), float32(y-10), float32(boxW), float32(boxH), 1, panelStroke, false)
	vector.DrawFilledRect(screen, float32(x-10), float32(y-10), 4, float32(fontSize+10), accent, false)

	title := fmt.Sprintf("ROUTES  %d arcs  %d rings", len(e.Arcs), len(e.globe.RingsDataValue()))
	titleOp := &text.DrawOptions{}
	titleOp.GeoM.Translate(x+5, y-5)
	titleOp.ColorScale.Scale(1, 1, 1, 0.5)
	text.Draw(screen, title, titleFace, titleOp)

	for i, it := range entries {
		ty := y + spacing*float64(i+1)
		c, err := config.ParseColor(it.Color)
		if err != nil {
			c = e.defaultColor
		}
		vector.DrawFilledCircle(screen, float32(x+swatch/2), float32(ty+fontSize/2), float32(swatch/2), c, true)

		op := &text.DrawOptions{}
		op.GeoM.Translate(x+swatch+10, ty)
		op.ColorScale.Scale(1, 1, 1, 0.8)
		text.Draw(screen, it.Label, face, op)
	}
}
