package protocol

import (
	"time"

	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/motion"
)

// SpeedUnit is the linear speed of one wheel-speed unit (m/s). Controllers work
// in cm/s.
const SpeedUnit = 0.01

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewStateMessage creates a state message
func NewStateMessage(pose geometry.Pose, vel *geometry.Velocity) (*Message, error) {
	return NewMessage(TypeState, StateData{Pose: pose, Velocity: vel})
}

// NewBallMessage creates a ball position message
func NewBallMessage(p geometry.Point) (*Message, error) {
	return NewMessage(TypeBall, BallData{Position: p})
}

// NewWheelsData converts controller wheel speeds (cm/s at the rim) into wheel
// angular velocities for a wheel of the given radius (m).
func NewWheelsData(ws motion.WheelSpeeds, wheelRadius float64) WheelsData {
	return WheelsData{
		Left:  ws.Left * SpeedUnit / wheelRadius,
		Right: ws.Right * SpeedUnit / wheelRadius,
	}
}

// Speeds converts the command back into controller wheel-speed units.
func (w WheelsData) Speeds(wheelRadius float64) motion.WheelSpeeds {
	return motion.WheelSpeeds{
		Left:  w.Left * wheelRadius / SpeedUnit,
		Right: w.Right * wheelRadius / SpeedUnit,
	}
}

// NewWheelsMessage creates a wheel command message
func NewWheelsMessage(ws motion.WheelSpeeds, wheelRadius float64) (*Message, error) {
	return NewMessage(TypeWheels, NewWheelsData(ws, wheelRadius))
}

// NewGoalMessage creates a goal message
func NewGoalMessage(goal GoalData) (*Message, error) {
	return NewMessage(TypeGoal, goal)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id})
}

// NewPongMessage creates a pong response
func NewPongMessage(id string, pingTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:     id,
		PingTS: pingTS,
		PongTS: time.Now().UnixMilli(),
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetBallData extracts ball data from a message
func (m *Message) GetBallData() (*BallData, error) {
	var data BallData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetWheelsData extracts a wheel command from a message
func (m *Message) GetWheelsData() (*WheelsData, error) {
	var data WheelsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGoalData extracts a goal from a message
func (m *Message) GetGoalData() (*GoalData, error) {
	var data GoalData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
