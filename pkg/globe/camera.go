package globe

import "math"

// Radius is the globe radius in scene units. Camera distance, altitudes and stroke
// widths are expressed in the same units.
const Radius = 100.0

type Vec3 struct{ X, Y, Z float64 }

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Len() float64         { return math.Sqrt(a.Dot(a)) }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

func (a Vec3) Norm() Vec3 {
	l := a.Len()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}

// SurfaceVec converts a coordinate to a scene position. Latitude 0, longitude 0 faces
// +Z, north is +Y and east is +X. alt is in scene units above the surface.
func SurfaceVec(lat, lng, alt float64) Vec3 {
	phi := (90 - lat) * math.Pi / 180
	theta := (90 - lng) * math.Pi / 180
	r := Radius + alt
	return Vec3{
		X: r * math.Sin(phi) * math.Cos(theta),
		Y: r * math.Cos(phi),
		Z: r * math.Sin(phi) * math.Sin(theta),
	}
}

// LatLng is the inverse of SurfaceVec, ignoring altitude.
func LatLng(v Vec3) (lat, lng float64) {
	n := v.Norm()
	lat = math.Asin(clamp(n.Y, -1, 1)) * 180 / math.Pi
	lng = math.Atan2(n.X, n.Z) * 180 / math.Pi
	return lat, lng
}

// Camera orbits the globe at a fixed distance, always looking at its center.
type Camera struct {
	Lat, Lng      float64 // point on the globe under the camera
	Distance      float64
	FOV           float64 // vertical, degrees
	MinLat        float64
	MaxLat        float64
	Width, Height int

	eye, right, up, fwd Vec3
	focal               float64
}

// NewCamera builds a camera centered on (lat, lng). Polar angles are measured from the
// north pole in degrees and bound the camera latitude while orbiting.
func NewCamera(lat, lng, distance, fov, minPolar, maxPolar float64, width, height int) *Camera {
	c := &Camera{
		Lng:      lng,
		Distance: distance,
		FOV:      fov,
		MinLat:   90 - maxPolar,
		MaxLat:   90 - minPolar,
		Width:    width,
		Height:   height,
	}
	c.Lat = clamp(lat, c.MinLat, c.MaxLat)
	c.update()
	return c
}

func (c *Camera) update() {
	c.fwd = SurfaceVec(c.Lat, c.Lng, 0).Norm()
	c.eye = c.fwd.Scale(c.Distance)
	c.right = Vec3{0, 1, 0}.Cross(c.fwd).Norm()
	c.up = c.fwd.Cross(c.right)
	c.focal = (float64(c.Height) / 2) / math.Tan(c.FOV*math.Pi/360)
}

func (c *Camera) Resize(width, height int) {
	c.Width, c.Height = width, height
	c.update()
}

// Orbit moves the camera by the given degrees, wrapping longitude and clamping latitude.
func (c *Camera) Orbit(dLat, dLng float64) {
	c.Lat = clamp(c.Lat+dLat, c.MinLat, c.MaxLat)
	c.Lng = math.Mod(c.Lng+dLng+540, 360) - 180
	c.update()
}

// AutoRotate advances the orbit by dt seconds. Speed 1 is one revolution per minute,
// with the globe appearing to turn eastward.
func (c *Camera) AutoRotate(dt, speed float64) {
	c.Orbit(0, -6*speed*dt)
}

// View returns p in camera space: x right, y up, z toward the camera.
func (c *Camera) View(p Vec3) Vec3 {
	return Vec3{p.Dot(c.right), p.Dot(c.up), p.Dot(c.fwd)}
}

// Project maps a scene position to screen pixels. ok is false when the point is behind
// the globe as seen from the camera.
func (c *Camera) Project(p Vec3) (x, y float64, ok bool) {
	if c.Occluded(p) {
		return 0, 0, false
	}
	v := c.View(p)
	depth := c.Distance - v.Z
	if depth <= 0 {
		return 0, 0, false
	}
	x = float64(c.Width)/2 + c.focal*v.X/depth
	y = float64(c.Height)/2 - c.focal*v.Y/depth
	return x, y, true
}

// Occluded reports whether the segment from the eye to p passes through the globe.
func (c *Camera) Occluded(p Vec3) bool {
	d := p.Sub(c.eye)
	a := d.Dot(d)
	if a == 0 {
		return false
	}
	b := 2 * c.eye.Dot(d)
	cc := c.eye.Dot(c.eye) - Radius*Radius
	disc := b*b - 4*a*cc
	if disc <= 0 {
		return false
	}
	t := (-b - math.Sqrt(disc)) / (2 * a)
	// Points on the surface hit at t == 1; allow for rounding.
	return t > 0 && t < 1-1e-6
}

// DistanceTo is the distance from the eye to p in scene units.
func (c *Camera) DistanceTo(p Vec3) float64 {
	return p.Sub(c.eye).Len()
}

// DiscRadius is the on-screen radius of the globe silhouette in pixels.
func (c *Camera) DiscRadius() float64 {
	return c.focal * Radius / math.Sqrt(c.Distance*c.Distance-Radius*Radius)
}

// Scale converts a length in scene units at the globe center to pixels.
func (c *Camera) Scale(units float64) float64 {
	return c.focal * units / c.Distance
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
