// Package protocol defines the WebSocket message types exchanged between the
// control server and robots (real or simulated).
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-vss/pkg/geometry"
)

// ErrUnknownMessage is returned for message types this side does not handle.
var ErrUnknownMessage = errors.New("protocol: unknown message type")

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Robot → server messages
	TypeState MessageType = "state" // Robot pose
	TypeBall  MessageType = "ball"  // Ball position seen by the sender

	// Server → robot messages
	TypeWheels MessageType = "wheels" // Wheel command

	// Bidirectional
	TypeGoal MessageType = "goal" // Navigation goal for the sender's robot
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: %w", ErrUnknownMessage)
	}
	return &msg, nil
}

// =============================================================================
// Robot → Server Message Types
// =============================================================================

// StateData is a robot's pose in field coordinates (m, rad). Velocity is
// optional; when absent the server estimates it from successive poses.
type StateData struct {
	Pose     geometry.Pose      `json:"pose"`
	Velocity *geometry.Velocity `json:"velocity,omitempty"`
}

// BallData is the ball position in field coordinates.
type BallData struct {
	Position geometry.Point `json:"position"`
}

// =============================================================================
// Server → Robot Message Types
// =============================================================================

// WheelsData is a wheel command in wheel angular velocity (rad/s).
type WheelsData struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// GoalData asks the server to drive a robot to Target. Orientation, when set,
// is the final heading. Avoid selects the obstacle-avoiding planner; Speed
// overrides the configured base speed when positive.
type GoalData struct {
	Target      geometry.Point `json:"target"`
	Orientation *float64       `json:"orientation,omitempty"`
	Avoid       bool           `json:"avoid"`
	Speed       float64        `json:"speed,omitempty"`
}

// PingData is a health check request
type PingData struct {
	ID string `json:"id,omitempty"`
}

// PongData is a health check response
type PongData struct {
	ID     string `json:"id,omitempty"`
	PingTS int64  `json:"ping_ts"`
	PongTS int64  `json:"pong_ts"`
}
