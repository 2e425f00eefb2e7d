// Package geometry provides the plane primitives shared by the planner and the
// motion controller: points, poses, velocities and angle arithmetic.
//
// All angles returned by this package are normalized to (-π, π].
package geometry

import "math"

// Point is a position on the field in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p scaled by k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Norm returns the Euclidean length of p seen as a vector.
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Angle returns the direction of p seen as a vector.
func (p Point) Angle() float64 {
	return WrapToPi(math.Atan2(p.Y, p.X))
}

// Pose is a robot position plus its heading. Theta is kept in (-π, π].
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// Point drops the heading.
func (p Pose) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// Velocity pairs with a Pose. Theta is the angular rate; the planner ignores it.
type Velocity struct {
	X     float64 `json:"vx"`
	Y     float64 `json:"vy"`
	Theta float64 `json:"vtheta"`
}

// Vector returns the linear part of the velocity.
func (v Velocity) Vector() Point {
	return Point{X: v.X, Y: v.Y}
}

// WrapToPi maps an angle into (-π, π] with a single 2π correction.
// Inputs are expected within [-3π, 3π].
func WrapToPi(angle float64) float64 {
	if angle > math.Pi {
		return angle - 2*math.Pi
	}
	if angle <= -math.Pi {
		return angle + 2*math.Pi
	}
	return angle
}

// NormalizeAngle maps any finite angle into (-π, π]. Use it for headings that
// come from outside the planner, where WrapToPi's single correction is not
// enough.
func NormalizeAngle(angle float64) float64 {
	a := math.Remainder(angle, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// SmallestAngleDifference returns the signed rotation b - a wrapped into (-π, π].
func SmallestAngleDifference(a, b float64) float64 {
	return WrapToPi(b - a)
}

// Bearing returns the direction from p1 to p2. Coincident points give 0.
func Bearing(p1, p2 Point) float64 {
	// atan2 yields -π for a -0 y component
	return WrapToPi(math.Atan2(p2.Y-p1.Y, p2.X-p1.X))
}

// Distance returns the Euclidean distance between p1 and p2.
func Distance(p1, p2 Point) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// Degrees converts radians to degrees for logging/display.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

// Clamp restricts v to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
