package robot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teslashibe/go-vss/internal/log"
	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/world"
)

// DefaultRate is the control loop period used when none is given.
const DefaultRate = 16 * time.Millisecond

// heartbeatTicks is how often the loop logs its counters.
const heartbeatTicks = 100

// errorLogInterval rate-limits send error logs.
const errorLogInterval = 5 * time.Second

// Goal is where a robot should go and how.
type Goal struct {
	Target      geometry.Point `json:"target"`
	Orientation *float64       `json:"orientation,omitempty"` // Final heading (rad); nil to stop on arrival
	Avoid       bool           `json:"avoid"`                 // Follow the univector field around obstacles
	Speed       float64        `json:"speed,omitempty"`       // Base speed override; 0 uses the configured one
}

func (g Goal) same(o Goal) bool {
	if g.Target != o.Target || g.Avoid != o.Avoid || g.Speed != o.Speed {
		return false
	}
	if g.Orientation == nil || o.Orientation == nil {
		return g.Orientation == o.Orientation
	}
	return *g.Orientation == *o.Orientation
}

// Telemetry is a snapshot of one control tick.
type Telemetry struct {
	RobotID   string             `json:"robot_id"`
	Session   string             `json:"session"`
	Tick      uint64             `json:"tick"`
	Time      time.Time          `json:"time"`
	Pose      geometry.Pose      `json:"pose"`
	Velocity  geometry.Velocity  `json:"velocity"`
	Goal      *Goal              `json:"goal,omitempty"`
	Wheels    motion.WheelSpeeds `json:"wheels"`
	PrevError float64            `json:"prev_error"`
	Arrived   bool               `json:"arrived"`
}

// Stats are the loop counters.
type Stats struct {
	Ticks   uint64 `json:"ticks"`
	Skipped uint64 `json:"skipped"`
	Errors  uint64 `json:"errors"`
}

// Driver runs one robot's control loop at a fixed rate. Goals and tuning may
// be changed from any goroutine; the loop picks them up on its next tick.
type Driver struct {
	id      string
	session string
	state   StateSource
	wheels  WheelCommander
	rate    time.Duration
	logger  *zap.SugaredLogger

	mu          sync.RWMutex
	ctrl        *motion.Controller
	goal        *Goal
	control     motion.ControlState
	onTelemetry func(Telemetry)

	// Owned by the loop goroutine
	lastSent   motion.WheelSpeeds
	sentOnce   bool
	lastErrLog time.Time

	statsMu sync.Mutex
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// NewDriver creates a driver for robot id. A zero rate uses DefaultRate.
func NewDriver(id string, state StateSource, wheels WheelCommander, ctrl *motion.Controller, rate time.Duration) *Driver {
	if rate <= 0 {
		rate = DefaultRate
	}
	if ctrl == nil {
		ctrl = motion.NewController(motion.DefaultConfig(), nil)
	}
	session := uuid.NewString()
	return &Driver{
		id:      id,
		session: session,
		state:   state,
		wheels:  wheels,
		rate:    rate,
		ctrl:    ctrl,
		logger:  log.With("robot", id, "session", session),
		stop:    make(chan struct{}),
	}
}

// ID returns the robot id.
func (d *Driver) ID() string { return d.id }

// Session returns the unique id of this driver instance.
func (d *Driver) Session() string { return d.session }

// SetGoal replaces the current goal. A different goal clears the derivative
// history so the previous behavior does not kick the new one.
func (d *Driver) SetGoal(g Goal) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.goal == nil || !d.goal.same(g) {
		d.control.Reset()
	}
	d.goal = &g
	d.logger.Infow("goal set", "target", g.Target, "avoid", g.Avoid)
}

// ClearGoal stops the robot.
func (d *Driver) ClearGoal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.goal = nil
	d.control.Reset()
}

// Goal returns the current goal.
func (d *Driver) Goal() (Goal, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.goal == nil {
		return Goal{}, false
	}
	return *d.goal, true
}

// Controller returns the wheel-speed controller in use.
func (d *Driver) Controller() *motion.Controller {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ctrl
}

// SetController swaps the wheel-speed controller between ticks.
func (d *Driver) SetController(ctrl *motion.Controller) {
	d.mu.Lock()
	d.ctrl = ctrl
	d.mu.Unlock()
}

// OnTelemetry sets a callback invoked after every tick that computed a command.
func (d *Driver) OnTelemetry(callback func(Telemetry)) {
	d.mu.Lock()
	d.onTelemetry = callback
	d.mu.Unlock()
}

// Stats returns the loop counters.
func (d *Driver) Stats() Stats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

// Run starts the control loop. Blocks until ctx is done or Stop is called, then
// sends a final stop command.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.rate)
	defer ticker.Stop()

	d.logger.Infow("control loop started", "rate", d.rate)
	defer func() {
		if d.wheels != nil {
			if err := d.wheels.SendWheels(d.id, motion.WheelSpeeds{}); err != nil {
				d.logger.Warnw("final stop failed", "error", err)
			}
		}
		d.logger.Infow("control loop stopped", "ticks", d.Stats().Ticks)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.stop:
			return nil
		case <-ticker.C:
			d.tick()
		}
	}
}

// Stop halts the control loop. Safe to call more than once.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
}

// tick executes one control cycle: read the pose, compute wheel speeds, send.
func (d *Driver) tick() {
	if d.state == nil || d.wheels == nil {
		return
	}

	entity, ok := d.state.Get(d.id)
	if !ok {
		// Not seen yet, or forgotten
		return
	}

	d.mu.Lock()
	ctrl := d.ctrl
	goal := d.goal
	var ws motion.WheelSpeeds
	arrived := false
	if goal != nil {
		ws, arrived = d.command(ctrl, entity, *goal)
	}
	prevError := d.control.PrevError
	callback := d.onTelemetry
	d.mu.Unlock()

	d.statsMu.Lock()
	d.stats.Ticks++
	ticks := d.stats.Ticks
	d.statsMu.Unlock()

	if ticks%heartbeatTicks == 0 {
		s := d.Stats()
		d.logger.Debugw("heartbeat", "ticks", s.Ticks, "skipped", s.Skipped, "errors", s.Errors, "pose", entity.Pose)
	}

	if callback != nil {
		t := Telemetry{
			RobotID:   d.id,
			Session:   d.session,
			Tick:      ticks,
			Time:      time.Now(),
			Pose:      entity.Pose,
			Velocity:  entity.Velocity,
			Wheels:    ws,
			PrevError: prevError,
			Arrived:   arrived,
		}
		if goal != nil {
			g := *goal
			t.Goal = &g
		}
		callback(t)
	}

	// Dead zone: a stopped robot stays stopped without repeating the command
	if ws.IsZero() && d.sentOnce && d.lastSent.IsZero() {
		d.statsMu.Lock()
		d.stats.Skipped++
		d.statsMu.Unlock()
		return
	}

	if err := d.wheels.SendWheels(d.id, ws); err != nil {
		d.statsMu.Lock()
		d.stats.Errors++
		total := d.stats.Errors
		d.statsMu.Unlock()

		// Log errors (but don't spam)
		if d.lastErrLog.IsZero() || time.Since(d.lastErrLog) > errorLogInterval {
			d.logger.Warnw("send wheels failed", "error", err, "total_errors", total)
			d.lastErrLog = time.Now()
		}
		return
	}
	d.lastSent = ws
	d.sentOnce = true
}

// command picks the planner for goal. Caller holds d.mu.
func (d *Driver) command(ctrl *motion.Controller, e world.Entity, goal Goal) (motion.WheelSpeeds, bool) {
	speed := goal.Speed
	if speed <= 0 {
		speed = ctrl.Config().BaseSpeed
	}
	arrived := geometry.Distance(e.Pose.Point(), goal.Target) < ctrl.Config().Tolerance

	if goal.Avoid {
		obs := d.state.Obstacles(d.id)
		return ctrl.GoToPointUnivector(e.Pose, e.Velocity, goal.Target, obs, goal.Orientation, speed), arrived
	}

	ws := d.control.Track(ctrl, e.Pose, goal.Target, speed)
	if ws.IsZero() && goal.Orientation != nil {
		ws = ctrl.SpinTo(e.Pose, *goal.Orientation, speed)
	}
	return ws, arrived
}
