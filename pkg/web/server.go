// Package web provides the REST API and live telemetry feed for operators.
package web

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-vss/internal/log"
	"github.com/teslashibe/go-vss/pkg/hub"
	"github.com/teslashibe/go-vss/pkg/robot"
	"github.com/teslashibe/go-vss/pkg/univector"
	"github.com/teslashibe/go-vss/pkg/world"
)

// Fleet is the set of driven robots the API controls.
type Fleet interface {
	Drivers() []*robot.Driver
	Driver(id string) (*robot.Driver, error)
	SetGoal(id string, g robot.Goal) error
	ClearGoal(id string) error
	TuningParams() robot.TuningParams
	SetTuningParams(p robot.TuningParams) error
}

// Connections reports how many robots are connected.
type Connections interface {
	RobotCount() int
}

var _ Fleet = (*robot.Fleet)(nil)

// Server is the dashboard server
type Server struct {
	app     *fiber.App
	started time.Time

	fleet Fleet
	world *world.Model
	conns Connections
	field *univector.Composer

	// Per-robot telemetry fan-out
	telemetryHub *hub.Hub
}

// NewServer creates a dashboard over fleet and w. conns may be nil. field is
// used by the field evaluation endpoint.
func NewServer(fleet Fleet, w *world.Model, conns Connections, field *univector.Composer) *Server {
	if field == nil {
		field = univector.NewComposer(univector.DefaultParams())
	}
	s := &Server{
		started:      time.Now(),
		fleet:        fleet,
		world:        w,
		conns:        conns,
		field:        field,
		telemetryHub: hub.New("telemetry"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "VSS Dashboard",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/robots", s.handleListRobots)
	api.Get("/robots/:id", s.handleGetRobot)
	api.Post("/robots/:id/goal", s.handleSetGoal)
	api.Delete("/robots/:id/goal", s.handleClearGoal)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Post("/field/evaluate", s.handleEvaluateField)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))

	s.app = app
	return s
}

// App exposes the fiber app (tests, extra routes).
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.telemetryHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()
	log.Info("dashboard listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		stopHub()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return <-errCh
	}
}

// PublishTelemetry sends one control tick to the telemetry subscribers
// following t.RobotID.
func (s *Server) PublishTelemetry(t robot.Telemetry) {
	if err := s.telemetryHub.PublishJSON(t.RobotID, t); err != nil {
		log.Warn("telemetry encode failed", "robot", t.RobotID, "error", err)
	}
}

// TelemetryHub returns the telemetry fan-out.
func (s *Server) TelemetryHub() *hub.Hub {
	return s.telemetryHub
}

// errorHandler renders every error as {"error": msg}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
