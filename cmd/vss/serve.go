package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-vss/internal/config"
	"github.com/teslashibe/go-vss/internal/log"
	"github.com/teslashibe/go-vss/pkg/cloud"
	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/protocol"
	"github.com/teslashibe/go-vss/pkg/robot"
	"github.com/teslashibe/go-vss/pkg/univector"
	"github.com/teslashibe/go-vss/pkg/web"
	"github.com/teslashibe/go-vss/pkg/world"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the robot hub, dashboard and control loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return newSystem(c.cfg).run(ctx, c.cfg)
		},
	}
}

// system is everything serve wires together.
type system struct {
	world    *world.Model
	robots   *cloud.Hub
	fleet    *robot.Fleet
	robotApp *fiber.App
	dash     *web.Server
}

func newSystem(cfg *config.Config) *system {
	w := world.New()
	w.SetForgetTimeout(cfg.Control.ForgetTimeout)

	field := univector.NewFieldComposer(cfg.Field, cfg.Geometry.FieldLength, cfg.Geometry.GoalWidth)
	ctrl := motion.NewController(cfg.Motion, field)

	robots := cloud.NewHub(w, cfg.Geometry.WheelRadius)
	fleet := robot.NewFleet(cfg.Robots, w, robots, ctrl, cfg.Control.Rate)
	dash := web.NewServer(fleet, w, robots, field)

	fleet.OnTelemetry(dash.PublishTelemetry)
	robots.OnGoal(func(robotID string, g *protocol.GoalData) {
		goal := robot.Goal{Target: g.Target, Avoid: g.Avoid, Speed: g.Speed}
		if g.Orientation != nil {
			o := geometry.NormalizeAngle(*g.Orientation)
			goal.Orientation = &o
		}
		if err := fleet.SetGoal(robotID, goal); err != nil {
			log.Warn("goal rejected", "robot", robotID, "error", err)
		}
	})

	return &system{
		world:    w,
		robots:   robots,
		fleet:    fleet,
		robotApp: newRobotApp(robots),
		dash:     dash,
	}
}

// newRobotApp serves the robot websocket endpoint plus health and metrics.
func newRobotApp(robots *cloud.Hub) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "vss-robots",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	robots.RegisterRoutes(app)
	robots.RegisterAPIRoutes(app.Group("/api"))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version,
			"robots":  robots.RobotCount(),
		})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		stats := robots.GetStats()
		return c.SendString(fmt.Sprintf(`# HELP vss_robots Connected robot count
# TYPE vss_robots gauge
vss_robots %d

# HELP vss_messages_received Total messages received
# TYPE vss_messages_received counter
vss_messages_received %d

# HELP vss_messages_sent Total messages sent
# TYPE vss_messages_sent counter
vss_messages_sent %d

# HELP vss_states_received Total state updates received
# TYPE vss_states_received counter
vss_states_received %d
`, stats.RobotCount, stats.MessagesReceived, stats.MessagesSent, stats.StatesReceived))
	})

	return app
}

// run serves until ctx is done or a component fails.
func (sys *system) run(ctx context.Context, cfg *config.Config) error {
	log.Info("starting vss",
		"version", version,
		"robots", cfg.Robots,
		"robot_addr", cfg.Server.RobotAddr,
		"dashboard_addr", cfg.Server.DashboardAddr,
		"rate", cfg.Control.Rate,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serveApp(gctx, sys.robotApp, cfg.Server.RobotAddr) })
	g.Go(func() error { return sys.dash.Run(gctx, cfg.Server.DashboardAddr) })
	g.Go(func() error { return sys.fleet.Run(gctx) })
	g.Go(func() error {
		forgetLoop(gctx, sys.world, cfg.Control.ForgetTimeout/2)
		return nil
	})

	err := g.Wait()
	log.Info("shutdown complete")
	return err
}

// serveApp runs app on addr until ctx is done.
func serveApp(ctx context.Context, app *fiber.App, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listener(ln) }()
	log.Info("robot hub listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return err
		}
		return <-errCh
	}
}

// forgetLoop drops robots that stopped reporting.
func forgetLoop(ctx context.Context, w *world.Model, every time.Duration) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range w.Forget() {
				log.Info("robot lost", "robot", id)
			}
		}
	}
}
