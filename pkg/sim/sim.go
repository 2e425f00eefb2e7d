// Package sim integrates differential-drive kinematics so wheel commands can be
// played back against a simulated field (tests and the vss-sim client).
package sim

import (
	"math"
	"sync"

	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/motion"
)

// Body describes a robot's drive train.
type Body struct {
	WheelBase  float64 // Distance between the wheels (m)
	SpeedScale float64 // m/s per wheel-speed unit
}

// DefaultBody is a 7.5 cm VSS robot where 100 wheel-speed units are 1 m/s.
func DefaultBody() Body {
	return Body{
		WheelBase:  0.075,
		SpeedScale: 0.01,
	}
}

// Twist converts wheel speeds into linear (m/s) and angular (rad/s) velocity.
func (b Body) Twist(ws motion.WheelSpeeds) (v, w float64) {
	left := ws.Left * b.SpeedScale
	right := ws.Right * b.SpeedScale
	return (left + right) / 2, (right - left) / b.WheelBase
}

// Step advances pose by dt seconds under constant wheel speeds, following the
// exact arc. Returns the new pose and the world-frame velocity.
func (b Body) Step(pose geometry.Pose, ws motion.WheelSpeeds, dt float64) (geometry.Pose, geometry.Velocity) {
	v, w := b.Twist(ws)

	next := pose
	if math.Abs(w) < 1e-9 {
		next.X += v * math.Cos(pose.Theta) * dt
		next.Y += v * math.Sin(pose.Theta) * dt
	} else {
		r := v / w
		theta := pose.Theta + w*dt
		next.X += r * (math.Sin(theta) - math.Sin(pose.Theta))
		next.Y -= r * (math.Cos(theta) - math.Cos(pose.Theta))
	}
	next.Theta = geometry.WrapToPi(math.Atan2(math.Sin(pose.Theta+w*dt), math.Cos(pose.Theta+w*dt)))

	vel := geometry.Velocity{
		X:     v * math.Cos(next.Theta),
		Y:     v * math.Sin(next.Theta),
		Theta: w,
	}
	return next, vel
}

// Robot is one simulated robot. Safe for concurrent use: the simulator loop
// steps it while the transport applies commands.
type Robot struct {
	ID   string
	body Body

	mu       sync.RWMutex
	pose     geometry.Pose
	velocity geometry.Velocity
	command  motion.WheelSpeeds
}

// NewRobot places a robot at pose.
func NewRobot(id string, body Body, pose geometry.Pose) *Robot {
	return &Robot{ID: id, body: body, pose: pose}
}

// SetWheels applies a wheel command until the next one arrives.
func (r *Robot) SetWheels(ws motion.WheelSpeeds) {
	r.mu.Lock()
	r.command = ws
	r.mu.Unlock()
}

// Step integrates the current command over dt seconds.
func (r *Robot) Step(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pose, r.velocity = r.body.Step(r.pose, r.command, dt)
}

// State returns the current pose and velocity.
func (r *Robot) State() (geometry.Pose, geometry.Velocity) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pose, r.velocity
}
