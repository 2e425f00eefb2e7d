// Package motion turns a target point or a desired heading into left/right wheel
// speeds for a two-wheeled robot.
//
// The controllers are pure: the only state carried between ticks is the
// previous heading error, held by the caller in a ControlState.
package motion

import (
	"math"

	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/obstacle"
	"github.com/teslashibe/go-vss/pkg/univector"
)

// WheelSpeeds is a left/right wheel command in linear speed units.
type WheelSpeeds struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// IsZero reports whether both wheels are stopped.
func (w WheelSpeeds) IsZero() bool {
	return w.Left == 0 && w.Right == 0
}

// ControlState is the previous heading error of one robot's PD loop.
// It must be owned by exactly one caller; it is not safe for concurrent use.
type ControlState struct {
	PrevError float64 `json:"prev_error"`
}

// Reset clears the derivative history. Call it whenever the behavior driving
// the robot changes.
func (s *ControlState) Reset() {
	s.PrevError = 0
}

// Track runs one point-tracking tick and stores the new error.
func (s *ControlState) Track(c *Controller, pose geometry.Pose, target geometry.Point, baseSpeed float64) WheelSpeeds {
	ws, e := c.GoToPoint(pose, target, s.PrevError, baseSpeed)
	s.PrevError = e
	return ws
}

// Controller computes wheel speeds. It is immutable and safe for concurrent use.
type Controller struct {
	cfg   Config
	field *univector.Composer
}

// NewController creates a controller. A nil field falls back to a composer with
// default parameters and no fixed obstacles.
func NewController(cfg Config, field *univector.Composer) *Controller {
	if field == nil {
		field = univector.NewComposer(univector.DefaultParams())
	}
	return &Controller{cfg: cfg, field: field}
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Field returns the field composer used for obstacle-aware driving.
func (c *Controller) Field() *univector.Composer {
	return c.field
}

// GoToPoint drives straight at target with a PD heading loop, backing up when
// the target is behind the robot. Returns the wheel speeds and the error to
// pass as prevError on the next tick. Inside the goal tolerance the robot stops
// and prevError is returned unchanged.
func (c *Controller) GoToPoint(pose geometry.Pose, target geometry.Point, prevError, baseSpeed float64) (WheelSpeeds, float64) {
	pos := pose.Point()
	if geometry.Distance(pos, target) < c.cfg.Tolerance {
		return WheelSpeeds{}, prevError
	}

	angleToTarget := geometry.Bearing(pos, target)
	err := geometry.SmallestAngleDifference(angleToTarget, pose.Theta)

	reversed := false
	if math.Abs(err) > c.cfg.ReverseThreshold {
		// Target behind: drive backward instead of turning around
		heading := geometry.WrapToPi(pose.Theta + math.Pi)
		err = geometry.SmallestAngleDifference(angleToTarget, heading)
		reversed = true
	}

	motor := geometry.Clamp(c.cfg.Kp*err+c.cfg.Kd*(err-prevError), -baseSpeed, baseSpeed)

	var ws WheelSpeeds
	switch {
	case !reversed && motor > 0:
		ws = WheelSpeeds{Left: baseSpeed, Right: baseSpeed - motor}
	case !reversed:
		ws = WheelSpeeds{Left: baseSpeed + motor, Right: baseSpeed}
	case motor > 0:
		ws = WheelSpeeds{Left: -baseSpeed + motor, Right: -baseSpeed}
	default:
		ws = WheelSpeeds{Left: -baseSpeed, Right: -baseSpeed - motor}
	}
	return ws, err
}

// FollowHeading steers toward the absolute heading desired, splitting base
// speed into a forward part shared by both wheels and a turning part. When the
// heading is behind the robot it drives backward and the turn sense flips, so
// it always rotates the short way. No clamping: choose BaseSpeed and KTurn so
// the sum stays within the motor limits.
func (c *Controller) FollowHeading(pose geometry.Pose, desired, baseSpeed float64) WheelSpeeds {
	diff := geometry.WrapToPi(desired - pose.Theta)

	forward := baseSpeed * math.Cos(diff)
	turn := baseSpeed * c.cfg.KTurn * math.Sin(diff)

	if diff > -math.Pi/2 && diff < math.Pi/2 {
		return WheelSpeeds{Left: forward - turn, Right: forward + turn}
	}
	return WheelSpeeds{Left: forward + turn, Right: forward - turn}
}

// SpinTo rotates in place toward orientation at a rate proportional to the
// remaining error. Inside AngleTolerance it stops.
func (c *Controller) SpinTo(pose geometry.Pose, orientation, baseSpeed float64) WheelSpeeds {
	err := geometry.SmallestAngleDifference(pose.Theta, orientation)
	if math.Abs(err) < c.cfg.AngleTolerance {
		return WheelSpeeds{}
	}

	speed := baseSpeed * err / math.Pi
	return WheelSpeeds{Left: -speed, Right: speed}
}

// GoToPointUnivector drives to target along the univector field, avoiding obs
// and the composer's fixed obstacles. Inside the goal tolerance it stops, or
// spins toward orientation when one is given.
func (c *Controller) GoToPointUnivector(pose geometry.Pose, vel geometry.Velocity, target geometry.Point, obs []obstacle.Obstacle, orientation *float64, baseSpeed float64) WheelSpeeds {
	if geometry.Distance(pose.Point(), target) < c.cfg.Tolerance {
		if orientation == nil {
			return WheelSpeeds{}
		}
		return c.SpinTo(pose, *orientation, baseSpeed)
	}

	heading := c.field.Compose(pose.Point(), vel, target, obs)
	return c.FollowHeading(pose, heading, baseSpeed)
}
