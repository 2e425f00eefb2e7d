package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/obstacle"
	"github.com/teslashibe/go-vss/pkg/univector"
)

// planOutput is what one planning call decided.
type planOutput struct {
	Field    univector.Result   `json:"field"`
	Wheels   motion.WheelSpeeds `json:"wheels"`
	Distance float64            `json:"distance"`
	Arrived  bool               `json:"arrived"`
}

type planFlags struct {
	pose        string
	velocity    string
	target      string
	obstacles   []string
	orientation float64
	preset      string
	noPosts     bool
}

func newPlanCmd(c *cli) *cobra.Command {
	f := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Evaluate the field and wheel command for one robot pose",
		Example: `  vss plan --pose 0,0,0 --target 0.5,0.2
  vss plan --pose -0.3,0,0 --target 0.5,0 --obstacle 0,0.01 --obstacle 0.2,0.1,0,-0.3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := runPlan(c, f, cmd.Flags().Changed("orientation"))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&f.pose, "pose", "0,0,0", "robot pose x,y,theta (m, rad)")
	cmd.Flags().StringVar(&f.velocity, "velocity", "0,0", "robot velocity vx,vy (m/s)")
	cmd.Flags().StringVar(&f.target, "target", "", "target point x,y (m)")
	cmd.Flags().StringArrayVar(&f.obstacles, "obstacle", nil, "obstacle x,y[,vx,vy] (repeatable)")
	cmd.Flags().Float64Var(&f.orientation, "orientation", 0, "final heading at the target (rad)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "controller preset: default, cautious or aggressive (overrides config)")
	cmd.Flags().BoolVar(&f.noPosts, "no-posts", false, "do not avoid the goal posts")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func runPlan(c *cli, f *planFlags, hasOrientation bool) (*planOutput, error) {
	pose, err := parseFloats("pose", f.pose, 3, 3)
	if err != nil {
		return nil, err
	}
	vel, err := parseFloats("velocity", f.velocity, 2, 2)
	if err != nil {
		return nil, err
	}
	target, err := parseFloats("target", f.target, 2, 2)
	if err != nil {
		return nil, err
	}

	var obs []obstacle.Obstacle
	for _, s := range f.obstacles {
		v, err := parseFloats("obstacle", s, 2, 4)
		if err != nil {
			return nil, err
		}
		o := obstacle.At(geometry.Point{X: v[0], Y: v[1]})
		if len(v) == 4 {
			o.Velocity = geometry.Velocity{X: v[2], Y: v[3]}
		} else if len(v) == 3 {
			return nil, fmt.Errorf("obstacle %q: velocity needs both vx and vy", s)
		}
		obs = append(obs, o)
	}

	mcfg := c.cfg.Motion
	switch f.preset {
	case "":
	case "default":
		mcfg = motion.DefaultConfig()
	case "cautious":
		mcfg = motion.CautiousConfig()
	case "aggressive":
		mcfg = motion.AggressiveConfig()
	default:
		return nil, fmt.Errorf("unknown preset %q", f.preset)
	}

	field := univector.NewFieldComposer(c.cfg.Field, c.cfg.Geometry.FieldLength, c.cfg.Geometry.GoalWidth)
	if f.noPosts {
		field = univector.NewComposer(c.cfg.Field)
	}
	ctrl := motion.NewController(mcfg, field)

	p := geometry.Pose{X: pose[0], Y: pose[1], Theta: geometry.NormalizeAngle(pose[2])}
	v := geometry.Velocity{X: vel[0], Y: vel[1]}
	t := geometry.Point{X: target[0], Y: target[1]}

	var orientation *float64
	if hasOrientation {
		if math.IsNaN(f.orientation) || math.IsInf(f.orientation, 0) {
			return nil, fmt.Errorf("orientation must be finite")
		}
		o := geometry.NormalizeAngle(f.orientation)
		orientation = &o
	}

	dist := geometry.Distance(p.Point(), t)
	return &planOutput{
		Field:    field.Evaluate(p.Point(), v, t, obs),
		Wheels:   ctrl.GoToPointUnivector(p, v, t, obs, orientation, mcfg.BaseSpeed),
		Distance: dist,
		Arrived:  dist < mcfg.Tolerance,
	}, nil
}

// parseFloats parses a comma-separated list of between lo and hi numbers.
func parseFloats(name, s string, lo, hi int) ([]float64, error) {
	if s == "" {
		return nil, fmt.Errorf("%s: value required", name)
	}
	parts := strings.Split(s, ",")
	if len(parts) < lo || len(parts) > hi {
		if lo == hi {
			return nil, fmt.Errorf("%s %q: want %d comma-separated numbers", name, s, lo)
		}
		return nil, fmt.Errorf("%s %q: want %d to %d comma-separated numbers", name, s, lo, hi)
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", name, s, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s %q: values must be finite", name, s)
		}
		out[i] = v
	}
	return out, nil
}
