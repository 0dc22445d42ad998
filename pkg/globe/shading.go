package globe

import (
	"image"
	"image/color"
	"math"
)

// Material is a Phong surface with a flat diffuse color.
type Material struct {
	Color             color.NRGBA
	Emissive          color.NRGBA
	EmissiveIntensity float64
	Shininess         float64
}

type LightKind int

const (
	AmbientLight LightKind = iota
	DirectionalLight
	PointLight
)

// Light is positioned in camera space, so shading does not change as the camera orbits.
type Light struct {
	Kind      LightKind
	Color     color.NRGBA
	Intensity float64
	Position  Vec3
}

type Atmosphere struct {
	Show     bool
	Color    color.NRGBA
	Altitude float64
}

const specularStrength = 0x11 / 255.0

type rgbf struct{ r, g, b float64 }

func toRGBF(c color.NRGBA) rgbf {
	return rgbf{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
}

// ShadeNormal returns the lit surface color for a camera-space normal n at distance
// cameraDist from the eye, before exposure.
func ShadeNormal(n Vec3, cameraDist float64, m Material, lights []Light) (r, g, b float64) {
	diffuse := toRGBF(m.Color)
	emissive := toRGBF(m.Emissive)
	p := n.Scale(Radius)
	eye := Vec3{0, 0, cameraDist}
	viewDir := eye.Sub(p).Norm()

	var irr, spec rgbf
	for _, l := range lights {
		lc := toRGBF(l.Color)
		if l.Kind == AmbientLight {
			irr.r += lc.r * l.Intensity
			irr.g += lc.g * l.Intensity
			irr.b += lc.b * l.Intensity
			continue
		}

		var dir Vec3
		if l.Kind == DirectionalLight {
			dir = l.Position.Norm()
		} else {
			dir = l.Position.Sub(p).Norm()
		}
		dotNL := n.Dot(dir)
		if dotNL <= 0 {
			continue
		}
		irr.r += lc.r * l.Intensity * dotNL
		irr.g += lc.g * l.Intensity * dotNL
		irr.b += lc.b * l.Intensity * dotNL

		half := dir.Add(viewDir).Norm()
		s := math.Pow(math.Max(n.Dot(half), 0), m.Shininess) * (m.Shininess*0.5 + 1) / math.Pi * dotNL * l.Intensity
		spec.r += lc.r * s
		spec.g += lc.g * s
		spec.b += lc.b * s
	}

	r = emissive.r*m.EmissiveIntensity + diffuse.r*irr.r/math.Pi + specularStrength*spec.r
	g = emissive.g*m.EmissiveIntensity + diffuse.g*irr.g/math.Pi + specularStrength*spec.g
	b = emissive.b*m.EmissiveIntensity + diffuse.b*irr.b/math.Pi + specularStrength*spec.b
	return r, g, b
}

// RenderBase rasterises the lit globe disc and its atmosphere halo, centered in a
// width x height image. It only depends on the viewport, so it is rebuilt on resize.
func RenderBase(cam *Camera, m Material, lights []Light, atm Atmosphere, exposure float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, cam.Width, cam.Height))
	cx, cy := float64(cam.Width)/2, float64(cam.Height)/2
	rho := cam.DiscRadius()
	outer := rho
	if atm.Show {
		outer = rho * (1 + 4*atm.Altitude)
	}
	ac := toRGBF(atm.Color)

	minY, maxY := int(math.Max(0, cy-outer-1)), int(math.Min(float64(cam.Height), cy+outer+1))
	minX, maxX := int(math.Max(0, cx-outer-1)), int(math.Min(float64(cam.Width), cx+outer+1))
	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			dx, dy := (float64(x)+0.5-cx)/rho, (float64(y)+0.5-cy)/rho
			d2 := dx*dx + dy*dy
			off := y*img.Stride + x*4

			if d2 <= 1 {
				n := Vec3{dx, -dy, math.Sqrt(1 - d2)}
				r, g, b := ShadeNormal(n, cam.Distance, m, lights)
				// Limb glow from the atmosphere bleeds over the disc edge.
				glow := 0.0
				if atm.Show {
					glow = math.Pow(d2, 6) * 0.6
				}
				img.Pix[off+0] = toByte((r*(1-glow) + ac.r*glow) * exposure)
				img.Pix[off+1] = toByte((g*(1-glow) + ac.g*glow) * exposure)
				img.Pix[off+2] = toByte((b*(1-glow) + ac.b*glow) * exposure)
				img.Pix[off+3] = 255
				continue
			}

			if !atm.Show {
				continue
			}
			d := math.Sqrt(d2)
			if d*rho > outer {
				continue
			}
			// Premultiplied alpha fading to nothing at the outer edge.
			a := math.Pow(1-(d*rho-rho)/(outer-rho), 2) * 0.6
			img.Pix[off+0] = toByte(ac.r * a)
			img.Pix[off+1] = toByte(ac.g * a)
			img.Pix[off+2] = toByte(ac.b * a)
			img.Pix[off+3] = toByte(a)
		}
	}
	return img
}

// FogFactor is the linear fog amount at distance d: 0 before near, 1 past far.
func FogFactor(d, near, far float64) float64 {
	if far <= near {
		return 0
	}
	return clamp((d-near)/(far-near), 0, 1)
}

func toByte(v float64) uint8 {
	return uint8(clamp(v, 0, 1)*255 + 0.5)
}
