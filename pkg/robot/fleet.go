package robot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-vss/pkg/motion"
)

// ErrRobotNotFound is returned for ids the fleet does not drive.
var ErrRobotNotFound = errors.New("robot: not found")

// Fleet owns one driver per controlled robot.
type Fleet struct {
	order   []string
	drivers map[string]*Driver
}

// NewFleet creates a driver for every id, all sharing ctrl.
func NewFleet(ids []string, state StateSource, wheels WheelCommander, ctrl *motion.Controller, rate time.Duration) *Fleet {
	f := &Fleet{drivers: make(map[string]*Driver, len(ids))}
	for _, id := range ids {
		if _, dup := f.drivers[id]; dup {
			continue
		}
		f.order = append(f.order, id)
		f.drivers[id] = NewDriver(id, state, wheels, ctrl, rate)
	}
	return f
}

// Driver returns the driver for id.
func (f *Fleet) Driver(id string) (*Driver, error) {
	d, ok := f.drivers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRobotNotFound, id)
	}
	return d, nil
}

// Drivers returns all drivers in configuration order.
func (f *Fleet) Drivers() []*Driver {
	result := make([]*Driver, 0, len(f.order))
	for _, id := range f.order {
		result = append(result, f.drivers[id])
	}
	return result
}

// SetGoal sets the goal of robot id.
func (f *Fleet) SetGoal(id string, g Goal) error {
	d, err := f.Driver(id)
	if err != nil {
		return err
	}
	d.SetGoal(g)
	return nil
}

// ClearGoal stops robot id.
func (f *Fleet) ClearGoal(id string) error {
	d, err := f.Driver(id)
	if err != nil {
		return err
	}
	d.ClearGoal()
	return nil
}

// TuningParams returns the shared tuning of the fleet.
func (f *Fleet) TuningParams() TuningParams {
	if len(f.order) == 0 {
		return TuningFromConfig(motion.DefaultConfig())
	}
	return f.drivers[f.order[0]].TuningParams()
}

// SetTuningParams applies p to every driver. Nothing changes if the result
// would be invalid.
func (f *Fleet) SetTuningParams(p TuningParams) error {
	for _, d := range f.Drivers() {
		if err := p.Apply(d.Controller().Config()).Validate(); err != nil {
			return err
		}
	}
	for _, d := range f.Drivers() {
		if err := d.SetTuningParams(p); err != nil {
			return err
		}
	}
	return nil
}

// OnTelemetry sets the telemetry callback of every driver.
func (f *Fleet) OnTelemetry(callback func(Telemetry)) {
	for _, d := range f.Drivers() {
		d.OnTelemetry(callback)
	}
}

// Run runs every driver until ctx is done.
func (f *Fleet) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range f.Drivers() {
		d := d
		g.Go(func() error { return d.Run(gctx) })
	}
	return g.Wait()
}
