package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/motion"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
	}{
		{"state message", TypeState, StateData{Pose: geometry.Pose{X: 0.1}}},
		{"wheels message", TypeWheels, WheelsData{Left: 1, Right: 2}},
		{"nil data", TypePing, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.msgType, msg.Type)
			assert.NotZero(t, msg.Timestamp, "timestamp should be set")
			if tt.data == nil {
				assert.Nil(t, msg.Data)
			}
		})
	}
}

func TestNewMessage_Unmarshalable(t *testing.T) {
	_, err := NewMessage(TypeState, math.Inf(1))
	assert.Error(t, err)
}

func TestStateMessageOverWire(t *testing.T) {
	vel := &geometry.Velocity{X: 0.2}
	msg, err := NewStateMessage(geometry.Pose{X: 0.1, Y: -0.2, Theta: 1.5}, vel)
	require.NoError(t, err)

	raw, err := msg.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"state"`)
	assert.Contains(t, string(raw), `"theta":1.5`)

	parsed, err := ParseMessage(raw)
	require.NoError(t, err)
	state, err := parsed.GetStateData()
	require.NoError(t, err)
	assert.Equal(t, geometry.Pose{X: 0.1, Y: -0.2, Theta: 1.5}, state.Pose)
	require.NotNil(t, state.Velocity)
	assert.Equal(t, 0.2, state.Velocity.X)
}

func TestStateMessage_VelocityOptional(t *testing.T) {
	parsed, err := ParseMessage([]byte(`{"type":"state","data":{"pose":{"x":1,"y":2,"theta":0}}}`))
	require.NoError(t, err)

	state, err := parsed.GetStateData()
	require.NoError(t, err)
	assert.Nil(t, state.Velocity)
	assert.Equal(t, 2.0, state.Pose.Y)
}

func TestParseMessage_Invalid(t *testing.T) {
	_, err := ParseMessage([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseMessage([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestNewWheelsData(t *testing.T) {
	// 30 cm/s on a 3 cm wheel is 10 rad/s
	w := NewWheelsData(motion.WheelSpeeds{Left: 30, Right: -15}, 0.03)
	assert.InDelta(t, 10.0, w.Left, 1e-9)
	assert.InDelta(t, -5.0, w.Right, 1e-9)

	back := w.Speeds(0.03)
	assert.InDelta(t, 30.0, back.Left, 1e-9)
	assert.InDelta(t, -15.0, back.Right, 1e-9)
}

func TestGoalMessage(t *testing.T) {
	orientation := math.Pi / 2
	msg, err := NewGoalMessage(GoalData{Target: geometry.Point{X: 0.3}, Orientation: &orientation, Avoid: true})
	require.NoError(t, err)

	goal, err := msg.GetGoalData()
	require.NoError(t, err)
	assert.True(t, goal.Avoid)
	require.NotNil(t, goal.Orientation)
	assert.InDelta(t, orientation, *goal.Orientation, 1e-12)
	assert.Zero(t, goal.Speed)
}

func TestPingPong(t *testing.T) {
	ping, err := NewPingMessage("abc")
	require.NoError(t, err)
	pd, err := ping.GetPingData()
	require.NoError(t, err)
	assert.Equal(t, "abc", pd.ID)

	pong, err := NewPongMessage(pd.ID, ping.Timestamp)
	require.NoError(t, err)
	data, err := pong.GetPongData()
	require.NoError(t, err)
	assert.Equal(t, "abc", data.ID)
	assert.Equal(t, ping.Timestamp, data.PingTS)
	assert.GreaterOrEqual(t, data.PongTS, data.PingTS)
}

func TestBallMessage(t *testing.T) {
	msg, err := NewBallMessage(geometry.Point{X: 0.25, Y: 0.1})
	require.NoError(t, err)
	ball, err := msg.GetBallData()
	require.NoError(t, err)
	assert.Equal(t, geometry.Point{X: 0.25, Y: 0.1}, ball.Position)
}
