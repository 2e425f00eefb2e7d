// Package univector computes a single desired heading at a robot's position by
// blending a spiral target-approach field with an obstacle-repulsion field.
//
// Everything here is a pure function of its inputs: no state, no I/O, and every
// returned angle is in (-π, π].
package univector

import (
	"math"

	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/obstacle"
)

// spiralDeflection is how far a lane heading turns away from the radial
// direction at lane radius rho. 0 at the target, approaching π/2 far away,
// continuous at rho == de.
func spiralDeflection(rho float64, p Params) float64 {
	if rho > p.De {
		return math.Pi / 2 * (2 - (p.De+p.Kr)/(rho+p.Kr))
	}
	return math.Pi / 2 * math.Sqrt(rho/p.De)
}

// TargetApproach returns the heading of the target-approach field at p.
//
// Two spiral lanes offset by ±de in y converge on the target: the clockwise
// lane serves points below the band, the counter-clockwise lane points above
// it, and inside the band the two are blended by distance to each lane's
// singular edge.
func TargetApproach(p, target geometry.Point, params Params) float64 {
	r := p.Sub(target)
	theta0 := math.Atan2(r.Y, r.X)

	rhoCW := math.Hypot(r.X, r.Y-params.De)
	rhoCCW := math.Hypot(r.X, r.Y+params.De)

	headingCW := geometry.WrapToPi(theta0 - spiralDeflection(rhoCW, params))
	headingCCW := geometry.WrapToPi(theta0 + spiralDeflection(rhoCCW, params))

	switch {
	case r.Y < -params.De:
		return headingCW
	case r.Y >= params.De:
		return headingCCW
	}

	wCCW := math.Abs(r.Y + params.De)
	wCW := math.Abs(r.Y - params.De)
	x := (wCCW*math.Cos(headingCCW) + wCW*math.Cos(headingCW)) / (2 * params.De)
	y := (wCCW*math.Sin(headingCCW) + wCW*math.Sin(headingCW)) / (2 * params.De)
	return geometry.WrapToPi(math.Atan2(y, x))
}

// VirtualPosition returns where o is treated as being when planning from p with
// robot velocity v. The shift k0·(o.v - v) never exceeds the current
// robot-to-obstacle distance.
func VirtualPosition(p geometry.Point, v geometry.Velocity, o obstacle.Obstacle, params Params) geometry.Point {
	shift := o.Velocity.Vector().Sub(v.Vector()).Scale(params.K0)

	dist := geometry.Distance(p, o.Position)
	if mag := shift.Norm(); mag > dist {
		shift = shift.Scale(dist / mag)
	}
	return o.Position.Add(shift)
}

// Avoidance returns the heading of the repulsion field of o at p: the bearing
// from the virtual obstacle position to the robot.
func Avoidance(p geometry.Point, v geometry.Velocity, o obstacle.Obstacle, params Params) float64 {
	return geometry.Bearing(VirtualPosition(p, v, o, params), p)
}

// GaussianWeight is the share of avoidance mixed into the heading at obstacle
// distance d. It is 1 at d == dmin and decays to 0 as d grows.
func GaussianWeight(d float64, params Params) float64 {
	e := d - params.DMin
	return math.Exp(-(e * e) / (2 * params.GaussianDelta * params.GaussianDelta))
}
