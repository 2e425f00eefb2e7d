// Package robot runs the per-robot control loops that turn navigation goals
// into wheel commands.
//
// The loops depend on two small interfaces: where poses come from and where
// wheel commands go. Consumers should depend only on the one they use.
package robot

import (
	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/obstacle"
	"github.com/teslashibe/go-vss/pkg/world"
)

// StateSource provides the latest field snapshot.
type StateSource interface {
	Get(id string) (world.Entity, bool)
	Obstacles(exclude string) []obstacle.Obstacle
}

// WheelCommander delivers wheel commands to a robot.
type WheelCommander interface {
	SendWheels(robotID string, ws motion.WheelSpeeds) error
}

// Ensure the world model can feed a driver
var _ StateSource = (*world.Model)(nil)
