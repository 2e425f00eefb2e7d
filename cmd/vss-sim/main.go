// vss-sim: simulated robots for the vss server.
// Each robot connects to the robot hub, streams its pose and applies the wheel
// commands it receives using differential-drive kinematics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-vss/internal/config"
	"github.com/teslashibe/go-vss/internal/log"
	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/protocol"
	"github.com/teslashibe/go-vss/pkg/robot"
	"github.com/teslashibe/go-vss/pkg/sim"
)

type flags struct {
	cfgFile   string
	hubURL    string
	serverURL string
	robots    []string
	rate      time.Duration
	ball      string
	goal      string
	avoid     bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:          "vss-sim",
		Short:        "Simulate VSS robots against a vss server",
		SilenceUsage: true,
		Example: `  vss-sim
  vss-sim --robots blue-0 --goal 0.5,0.2 --ball 0.1,0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.cfgFile)
			if err != nil {
				return err
			}
			log.Init(cfg.Log.Level)

			s, err := newSimulator(cfg, f)
			if err != nil {
				return err
			}
			ids := f.robots
			if len(ids) == 0 {
				ids = cfg.Robots
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.run(ctx, ids, cfg.Geometry)
		},
	}

	cmd.Flags().StringVarP(&f.cfgFile, "config", "c", "", "config file (default is ./vss.yaml)")
	cmd.Flags().StringVar(&f.hubURL, "hub", config.HubURL(), "robot hub websocket URL")
	cmd.Flags().StringVar(&f.serverURL, "server", config.ServerURL(), "dashboard API URL for the initial goal")
	cmd.Flags().StringSliceVar(&f.robots, "robots", nil, "robot ids (default from config)")
	cmd.Flags().DurationVar(&f.rate, "rate", 16*time.Millisecond, "simulation step")
	cmd.Flags().StringVar(&f.ball, "ball", "", "ball position x,y reported by the first robot")
	cmd.Flags().StringVar(&f.goal, "goal", "", "initial goal x,y posted for every robot")
	cmd.Flags().BoolVar(&f.avoid, "avoid", true, "follow the univector field to the initial goal")

	return cmd
}

func newSimulator(cfg *config.Config, f *flags) (*simulator, error) {
	if f.rate <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %v", f.rate)
	}
	s := &simulator{
		hubURL:      strings.TrimSuffix(f.hubURL, "/"),
		serverURL:   strings.TrimSuffix(f.serverURL, "/"),
		wheelRadius: cfg.Geometry.WheelRadius,
		body:        sim.Body{WheelBase: cfg.Geometry.WheelBase, SpeedScale: protocol.SpeedUnit},
		rate:        f.rate,
	}
	if f.ball != "" {
		p, err := parsePoint(f.ball)
		if err != nil {
			return nil, fmt.Errorf("ball: %w", err)
		}
		s.ball = &p
	}
	if f.goal != "" {
		p, err := parsePoint(f.goal)
		if err != nil {
			return nil, fmt.Errorf("goal: %w", err)
		}
		s.goal = &robot.Goal{Target: p, Avoid: f.avoid}
	}
	return s, nil
}

// run simulates ids until ctx is done or a connection fails.
func (s *simulator) run(ctx context.Context, ids []string, geo config.GeometryConfig) error {
	log.Info("starting simulator", "robots", ids, "hub", s.hubURL, "rate", s.rate)

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		r := sim.NewRobot(id, s.body, startPose(i, len(ids), geo))
		reportBall := i == 0
		g.Go(func() error { return s.runRobot(gctx, r, reportBall) })
	}
	return g.Wait()
}

// startPose lines robots up across our half, facing the far goal.
func startPose(i, n int, geo config.GeometryConfig) geometry.Pose {
	spacing := geo.FieldWidth / float64(n+1)
	return geometry.Pose{
		X: -geo.FieldLength / 4,
		Y: -geo.FieldWidth/2 + spacing*float64(i+1),
	}
}

func parsePoint(s string) (geometry.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geometry.Point{}, fmt.Errorf("%q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("%q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("%q: %w", s, err)
	}
	return geometry.Point{X: x, Y: y}, nil
}

func main() {
	defer log.Sync()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
