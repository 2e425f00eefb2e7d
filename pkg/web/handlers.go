package web

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-vss/internal/log"
	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/hub"
	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/obstacle"
	"github.com/teslashibe/go-vss/pkg/robot"
	"github.com/teslashibe/go-vss/pkg/world"
)

// Status is the dashboard summary
type Status struct {
	Uptime           string          `json:"uptime"`
	RobotsConnected  int             `json:"robots_connected"`
	RobotsTracked    int             `json:"robots_tracked"`
	TelemetryClients int             `json:"telemetry_clients"`
	Ball             *geometry.Point `json:"ball,omitempty"`
}

// RobotStatus is one driven robot as the dashboard sees it
type RobotStatus struct {
	ID      string        `json:"id"`
	Session string        `json:"session"`
	Seen    bool          `json:"seen"`
	State   *world.Entity `json:"state,omitempty"`
	Goal    *robot.Goal   `json:"goal,omitempty"`
	Stats   robot.Stats   `json:"stats"`
}

// EvaluateRequest asks for the field heading at a point. When Robot names a
// tracked robot its pose, velocity and surrounding obstacles are taken from
// the world model instead.
type EvaluateRequest struct {
	Robot     string              `json:"robot,omitempty"`
	Position  geometry.Point      `json:"position"`
	Velocity  geometry.Velocity   `json:"velocity"`
	Target    geometry.Point      `json:"target"`
	Obstacles []obstacle.Obstacle `json:"obstacles"`
}

// handleStatus returns the dashboard summary
func (s *Server) handleStatus(c *fiber.Ctx) error {
	st := Status{
		Uptime:           time.Since(s.started).Round(time.Second).String(),
		RobotsTracked:    len(s.world.Robots()),
		TelemetryClients: s.telemetryHub.Subscribers(),
	}
	if s.conns != nil {
		st.RobotsConnected = s.conns.RobotCount()
	}
	if ball, ok := s.world.Ball(); ok {
		st.Ball = &ball
	}
	return c.JSON(st)
}

// handleListRobots returns every driven robot
func (s *Server) handleListRobots(c *fiber.Ctx) error {
	drivers := s.fleet.Drivers()
	out := make([]RobotStatus, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, s.robotStatus(d))
	}
	return c.JSON(fiber.Map{
		"robots": out,
		"count":  len(out),
	})
}

// handleGetRobot returns one driven robot
func (s *Server) handleGetRobot(c *fiber.Ctx) error {
	d, err := s.fleet.Driver(c.Params("id"))
	if err != nil {
		return apiError(err)
	}
	return c.JSON(s.robotStatus(d))
}

// handleSetGoal sends a robot toward a new goal
func (s *Server) handleSetGoal(c *fiber.Ctx) error {
	id := c.Params("id")

	var goal robot.Goal
	if err := c.BodyParser(&goal); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid goal: "+err.Error())
	}
	if !finite(goal.Target.X, goal.Target.Y, goal.Speed) || goal.Speed < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid goal: target and speed must be finite, speed non-negative")
	}
	if goal.Orientation != nil {
		if !finite(*goal.Orientation) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid goal: orientation must be finite")
		}
		o := geometry.NormalizeAngle(*goal.Orientation)
		goal.Orientation = &o
	}

	if err := s.fleet.SetGoal(id, goal); err != nil {
		return apiError(err)
	}
	log.Info("goal set", "robot", id, "target", goal.Target, "avoid", goal.Avoid)
	return c.JSON(fiber.Map{
		"robot": id,
		"goal":  goal,
	})
}

// handleClearGoal stops a robot
func (s *Server) handleClearGoal(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.fleet.ClearGoal(id); err != nil {
		return apiError(err)
	}
	log.Info("goal cleared", "robot", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleGetTuning returns the shared controller tuning
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.fleet.TuningParams())
}

// handleSetTuning updates controller tuning on every robot. Zero or omitted
// values are left unchanged, so kd and k_turn cannot be turned off here.
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var p robot.TuningParams
	if err := c.BodyParser(&p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid tuning: "+err.Error())
	}
	for _, v := range []float64{p.Kp, p.Kd, p.KTurn, p.Tolerance, p.AngleTolerance, p.BaseSpeed} {
		if v < 0 || !finite(v) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid tuning: values must be non-negative")
		}
	}
	if err := s.fleet.SetTuningParams(p); err != nil {
		return apiError(err)
	}
	return c.JSON(s.fleet.TuningParams())
}

// handleEvaluateField returns the univector field breakdown at a point
func (s *Server) handleEvaluateField(c *fiber.Ctx) error {
	var req EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request: "+err.Error())
	}

	if req.Robot != "" {
		e, ok := s.world.Get(req.Robot)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "robot not tracked: "+req.Robot)
		}
		req.Position = e.Pose.Point()
		req.Velocity = e.Velocity
		req.Obstacles = obstacle.Append(req.Obstacles, s.world.Obstacles(req.Robot)...)
	}

	res := s.field.Evaluate(req.Position, req.Velocity, req.Target, req.Obstacles)
	return c.JSON(res)
}

// handleTelemetryWS streams control ticks to a dashboard client. The optional
// robot query parameter is a comma-separated list of robot ids to follow.
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	var robots []string
	for _, id := range strings.Split(c.Query("robot"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			robots = append(robots, id)
		}
	}
	hub.Subscribe(s.telemetryHub, c, robots...).Serve()
}

func (s *Server) robotStatus(d *robot.Driver) RobotStatus {
	rs := RobotStatus{
		ID:      d.ID(),
		Session: d.Session(),
		Stats:   d.Stats(),
	}
	if e, ok := s.world.Get(d.ID()); ok {
		rs.Seen = true
		rs.State = &e
	}
	if g, ok := d.Goal(); ok {
		rs.Goal = &g
	}
	return rs
}

// apiError maps domain errors onto HTTP status codes.
func apiError(err error) error {
	switch {
	case errors.Is(err, robot.ErrRobotNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, motion.ErrInvalidConfig):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
