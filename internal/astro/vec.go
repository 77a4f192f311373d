package astro

import "math"

// Vec2 is a position or velocity in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Heading is the unit vector for facing f radians, clockwise from up.
// Screen y grows downward.
func Heading(f float64) Vec2 {
	return Vec2{math.Sin(f), -math.Cos(f)}
}

// Clamp limits the magnitude of v to max.
func (v Vec2) Clamp(max float64) Vec2 {
	n := v.Len()
	if n <= max || n == 0 {
		return v
	}
	return v.Scale(max / n)
}

// Wrap folds v into [0, w) x [0, h).
func (v Vec2) Wrap(w, h float64) Vec2 {
	return Vec2{wrap(v.X, w), wrap(v.Y, h)}
}

func wrap(x, size float64) float64 {
	if size <= 0 {
		return x
	}
	x = math.Mod(x, size)
	if x < 0 {
		x += size
	}
	// A tiny negative x rounds up to size.
	if x >= size {
		x = 0
	}
	return x
}

// WrappedDelta is the shortest displacement from a to b on a torus of
// size w x h.
func WrappedDelta(a, b Vec2, w, h float64) Vec2 {
	d := b.Sub(a)
	return Vec2{shortest(d.X, w), shortest(d.Y, h)}
}

func shortest(d, size float64) float64 {
	if size <= 0 {
		return d
	}
	d = math.Mod(d, size)
	switch {
	case d > size/2:
		d -= size
	case d < -size/2:
		d += size
	}
	return d
}
