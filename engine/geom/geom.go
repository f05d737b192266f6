// Package geom provides the small vector and angle helpers shared by the
// scene, grid, and condition packages. Positions live on the scene plane:
// X and Y are plane coordinates, Z is height and is ignored by distance tests.
package geom

import "math"

// Vec2f is a point or direction on the scene plane.
type Vec2f struct {
	X, Y float64
}

// Vec3f is an object position. Distances are measured on the XY plane.
type Vec3f struct {
	X, Y, Z float64
}

// Vec2i is a walk-grid cell index or size.
type Vec2i struct {
	X, Y int
}

func (v Vec2f) Add(o Vec2f) Vec2f     { return Vec2f{v.X + o.X, v.Y + o.Y} }
func (v Vec2f) Sub(o Vec2f) Vec2f     { return Vec2f{v.X - o.X, v.Y - o.Y} }
func (v Vec2f) Scale(k float64) Vec2f { return Vec2f{v.X * k, v.Y * k} }
func (v Vec2f) Norm2() float64        { return v.X*v.X + v.Y*v.Y }
func (v Vec2f) Norm() float64         { return math.Sqrt(v.Norm2()) }
func (v Vec2f) Vec3(z float64) Vec3f  { return Vec3f{v.X, v.Y, z} }
func (v Vec3f) Add(o Vec3f) Vec3f     { return Vec3f{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3f) Sub(o Vec3f) Vec3f     { return Vec3f{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3f) XY() Vec2f             { return Vec2f{v.X, v.Y} }
func (v Vec3f) Norm() float64         { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }
func (v Vec3f) Norm2() float64        { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }
func (v Vec2i) Add(o Vec2i) Vec2i     { return Vec2i{v.X + o.X, v.Y + o.Y} }
func (v Vec2i) Equal(o Vec2i) bool    { return v.X == o.X && v.Y == o.Y }
func (v Vec3f) Scale(k float64) Vec3f { return Vec3f{v.X * k, v.Y * k, v.Z * k} }
func (v Vec3f) WithZ(z float64) Vec3f { return Vec3f{v.X, v.Y, z} }
func (v Vec2f) Dot(o Vec2f) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec2f) Psi() float64          { return math.Atan2(v.Y, v.X) }
func (v Vec2i) Scale(k int) Vec2i     { return Vec2i{v.X * k, v.Y * k} }
func (v Vec2i) Sub(o Vec2i) Vec2i     { return Vec2i{v.X - o.X, v.Y - o.Y} }
func (v Vec2i) Vec2f() Vec2f          { return Vec2f{float64(v.X), float64(v.Y)} }
func (v Vec2f) Round() Vec2i          { return Vec2i{int(math.Round(v.X)), int(math.Round(v.Y))} }
func (v Vec2f) Floor() Vec2i          { return Vec2i{int(math.Floor(v.X)), int(math.Floor(v.Y))} }
func (v Vec2f) Equal(o Vec2f) bool    { return v.X == o.X && v.Y == o.Y }
func (v Vec3f) Equal(o Vec3f) bool    { return v.X == o.X && v.Y == o.Y && v.Z == o.Z }
func (v Vec2f) Neg() Vec2f            { return Vec2f{-v.X, -v.Y} }
func (v Vec2i) Less(o Vec2i) bool     { return v.Y < o.Y || (v.Y == o.Y && v.X < o.X) }
func (v Vec2f) Lerp(o Vec2f, t float64) Vec2f {
	return Vec2f{v.X + (o.X-v.X)*t, v.Y + (o.Y-v.Y)*t}
}

// PlaneDist2 is the squared XY distance between two positions.
func PlaneDist2(a, b Vec3f) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	return dx*dx + dy*dy
}

// PlaneDist is the XY distance between two positions.
func PlaneDist(a, b Vec3f) float64 {
	return math.Sqrt(PlaneDist2(a, b))
}

// Rotate turns v counter-clockwise by angle radians.
func (v Vec2f) Rotate(angle float64) Vec2f {
	s, c := math.Sincos(angle)
	return Vec2f{v.X*c - v.Y*s, v.X*s + v.Y*c}
}

// Normalize returns v scaled to length n. A zero vector stays zero.
func (v Vec2f) Normalize(n float64) Vec2f {
	l := v.Norm()
	if l == 0 {
		return v
	}
	return v.Scale(n / l)
}

// CycleAngle maps a to [0, 2π).
func CycleAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// DeltaAngle returns the signed shortest rotation from b to a, in (-π, π].
func DeltaAngle(a, b float64) float64 {
	d := CycleAngle(a - b)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	return d
}

// DirectionAngle returns the plane angle of the vector from -> to, cycled to
// [0, 2π). Coincident points keep the fallback angle.
func DirectionAngle(from, to Vec3f, fallback float64) float64 {
	dx, dy := to.X-from.X, to.Y-from.Y
	if dx*dx+dy*dy <= 0.01 {
		return fallback
	}
	return CycleAngle(math.Atan2(dy, dx))
}

// Polar returns the point dist away from r in direction angle.
func Polar(r Vec3f, angle, dist float64) Vec3f {
	s, c := math.Sincos(angle)
	return Vec3f{r.X + dist*c, r.Y + dist*s, r.Z}
}
