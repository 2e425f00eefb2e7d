package web

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/robot"
	"github.com/teslashibe/go-vss/pkg/univector"
	"github.com/teslashibe/go-vss/pkg/world"
)

type nopWheels struct{}

func (nopWheels) SendWheels(string, motion.WheelSpeeds) error { return nil }

type fixedConns int

func (n fixedConns) RobotCount() int { return int(n) }

func newTestServer(t *testing.T) (*Server, *world.Model, *robot.Fleet) {
	t.Helper()
	w := world.New()
	ctrl := motion.NewController(motion.DefaultConfig(), nil)
	fleet := robot.NewFleet([]string{"blue-0", "blue-1"}, w, nopWheels{}, ctrl, 10*time.Millisecond)
	return NewServer(fleet, w, fixedConns(1), nil), w, fleet
}

func do(t *testing.T, s *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestStatus(t *testing.T) {
	s, w, _ := newTestServer(t)
	w.Update("blue-0", geometry.Pose{X: 0.1}, nil)
	w.UpdateBall(geometry.Point{X: 0.2, Y: 0.1})

	resp, body := do(t, s, "GET", "/api/status", "")
	require.Equal(t, 200, resp.StatusCode)

	var st Status
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, 1, st.RobotsConnected)
	assert.Equal(t, 1, st.RobotsTracked)
	require.NotNil(t, st.Ball)
	assert.Equal(t, geometry.Point{X: 0.2, Y: 0.1}, *st.Ball)
}

func TestListRobots(t *testing.T) {
	s, w, fleet := newTestServer(t)
	w.Update("blue-1", geometry.Pose{X: -0.3, Theta: 1}, nil)
	require.NoError(t, fleet.SetGoal("blue-1", robot.Goal{Target: geometry.Point{X: 0.5}}))

	resp, body := do(t, s, "GET", "/api/robots", "")
	require.Equal(t, 200, resp.StatusCode)

	var out struct {
		Robots []RobotStatus `json:"robots"`
		Count  int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, 2, out.Count)

	assert.Equal(t, "blue-0", out.Robots[0].ID)
	assert.False(t, out.Robots[0].Seen)
	assert.Nil(t, out.Robots[0].Goal)

	assert.True(t, out.Robots[1].Seen)
	require.NotNil(t, out.Robots[1].State)
	assert.Equal(t, -0.3, out.Robots[1].State.Pose.X)
	require.NotNil(t, out.Robots[1].Goal)
	assert.Equal(t, 0.5, out.Robots[1].Goal.Target.X)
}

func TestGetRobot(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp, body := do(t, s, "GET", "/api/robots/blue-0", "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), `"id":"blue-0"`)

	resp, body = do(t, s, "GET", "/api/robots/yellow-9", "")
	assert.Equal(t, 404, resp.StatusCode)
	assert.Contains(t, string(body), "error")
}

func TestSetAndClearGoal(t *testing.T) {
	s, _, fleet := newTestServer(t)

	resp, _ := do(t, s, "POST", "/api/robots/blue-0/goal", `{"target":{"x":0.4,"y":-0.2},"orientation":7,"avoid":true}`)
	require.Equal(t, 200, resp.StatusCode)

	d, err := fleet.Driver("blue-0")
	require.NoError(t, err)
	g, ok := d.Goal()
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 0.4, Y: -0.2}, g.Target)
	assert.True(t, g.Avoid)
	require.NotNil(t, g.Orientation)
	assert.InDelta(t, 7-2*math.Pi, *g.Orientation, 1e-9)

	resp, _ = do(t, s, "DELETE", "/api/robots/blue-0/goal", "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	_, ok = d.Goal()
	assert.False(t, ok)
}

func TestSetGoal_NormalizesLargeOrientation(t *testing.T) {
	s, w, fleet := newTestServer(t)

	resp, _ := do(t, s, "POST", "/api/robots/blue-0/goal", `{"target":{"x":0.4,"y":0},"orientation":20}`)
	require.Equal(t, 200, resp.StatusCode)

	d, err := fleet.Driver("blue-0")
	require.NoError(t, err)
	g, ok := d.Goal()
	require.True(t, ok)
	require.NotNil(t, g.Orientation)
	assert.Greater(t, *g.Orientation, -math.Pi)
	assert.LessOrEqual(t, *g.Orientation, math.Pi)
	assert.InDelta(t, 20-6*math.Pi, *g.Orientation, 1e-9)

	// A robot already facing 20 rad is done once it reaches the target
	w.Update("blue-0", geometry.Pose{X: 0.4, Theta: 20}, nil)
	e, _ := w.Get("blue-0")
	ws := d.Controller().GoToPointUnivector(e.Pose, e.Velocity, g.Target, nil, g.Orientation, 30)
	assert.True(t, ws.IsZero())
}

func TestSetGoal_Errors(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown robot", "/api/robots/ghost/goal", `{"target":{"x":0}}`, 404},
		{"bad json", "/api/robots/blue-0/goal", `{"target":`, 400},
		{"negative speed", "/api/robots/blue-0/goal", `{"target":{"x":0},"speed":-1}`, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, s, "POST", tt.path, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}

	resp, _ := do(t, s, "DELETE", "/api/robots/ghost/goal", "")
	assert.Equal(t, 404, resp.StatusCode)
}

func TestTuning(t *testing.T) {
	s, _, fleet := newTestServer(t)

	resp, body := do(t, s, "GET", "/api/tuning", "")
	require.Equal(t, 200, resp.StatusCode)
	var p robot.TuningParams
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, robot.TuningFromConfig(motion.DefaultConfig()), p)

	resp, body = do(t, s, "POST", "/api/tuning", `{"kp":12,"base_speed":45}`)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, 12.0, p.Kp)
	assert.Equal(t, 45.0, p.BaseSpeed)
	assert.Equal(t, motion.DefaultConfig().Kd, p.Kd)

	for _, d := range fleet.Drivers() {
		assert.Equal(t, 12.0, d.TuningParams().Kp, d.ID())
	}

	resp, _ = do(t, s, "POST", "/api/tuning", `{"kd":-1}`)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestEvaluateField(t *testing.T) {
	s, w, _ := newTestServer(t)

	resp, body := do(t, s, "POST", "/api/field/evaluate", `{"position":{"x":0,"y":0},"target":{"x":0.5,"y":0}}`)
	require.Equal(t, 200, resp.StatusCode)
	var res univector.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.False(t, res.HasObstacle)
	assert.InDelta(t, 0, res.Heading, 1e-9)

	// Robot lookups pull obstacles from the world
	w.Update("blue-0", geometry.Pose{X: -0.3}, nil)
	w.Update("blue-1", geometry.Pose{X: -0.25}, nil)
	resp, body = do(t, s, "POST", "/api/field/evaluate", `{"robot":"blue-0","target":{"x":0.5,"y":0}}`)
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.HasObstacle)
	assert.Equal(t, geometry.Point{X: -0.25}, res.Nearest.Position)

	resp, _ = do(t, s, "POST", "/api/field/evaluate", `{"robot":"ghost"}`)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestTelemetryRequiresUpgrade(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp, _ := do(t, s, "GET", "/ws/telemetry", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestTelemetryStream(t *testing.T) {
	s, _, _ := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()
	defer func() {
		cancel()
		assert.NoError(t, <-served)
	}()

	base := "ws://" + ln.Addr().String() + "/ws/telemetry"
	ws, _, err := websocket.DefaultDialer.Dial(base, nil)
	require.NoError(t, err)
	defer ws.Close()
	only, _, err := websocket.DefaultDialer.Dial(base+"?robot=blue-1", nil)
	require.NoError(t, err)
	defer only.Close()
	require.Eventually(t, func() bool { return s.TelemetryHub().Subscribers() == 2 }, time.Second, 5*time.Millisecond)

	s.PublishTelemetry(robot.Telemetry{RobotID: "blue-0", Tick: 3, Wheels: motion.WheelSpeeds{Left: 10, Right: 12}})
	s.PublishTelemetry(robot.Telemetry{RobotID: "blue-1", Tick: 4})

	got := readTelemetry(t, ws)
	assert.Equal(t, "blue-0", got.RobotID)
	assert.EqualValues(t, 3, got.Tick)
	assert.Equal(t, 12.0, got.Wheels.Right)
	assert.Equal(t, "blue-1", readTelemetry(t, ws).RobotID)

	// The filtered subscriber never sees blue-0
	assert.Equal(t, "blue-1", readTelemetry(t, only).RobotID)
}

func readTelemetry(t *testing.T, ws *websocket.Conn) robot.Telemetry {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var got robot.Telemetry
	require.NoError(t, json.Unmarshal(data, &got))
	return got
}
