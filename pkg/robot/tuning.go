package robot

import "github.com/teslashibe/go-vss/pkg/motion"

// TuningParams holds the real-time adjustable controller parameters.
// These can be modified via the tuning API without restarting the server.
type TuningParams struct {
	// PD controller
	Kp float64 `json:"kp"` // Proportional gain
	Kd float64 `json:"kd"` // Derivative gain

	// Heading tracking
	KTurn float64 `json:"k_turn"` // Turning share of base speed

	// Tolerances
	Tolerance      float64 `json:"tolerance"`       // Goal radius (m)
	AngleTolerance float64 `json:"angle_tolerance"` // Final orientation dead zone (rad)

	// Speed
	BaseSpeed float64 `json:"base_speed"` // Nominal wheel speed (cm/s)
}

// TuningFromConfig extracts the tunable values of cfg.
func TuningFromConfig(cfg motion.Config) TuningParams {
	return TuningParams{
		Kp:             cfg.Kp,
		Kd:             cfg.Kd,
		KTurn:          cfg.KTurn,
		Tolerance:      cfg.Tolerance,
		AngleTolerance: cfg.AngleTolerance,
		BaseSpeed:      cfg.BaseSpeed,
	}
}

// Apply returns cfg with the non-zero values of p applied. Zero means
// "unchanged", so a gain cannot be tuned down to exactly zero at runtime; set
// it in the config file instead.
func (p TuningParams) Apply(cfg motion.Config) motion.Config {
	if p.Kp > 0 {
		cfg.Kp = p.Kp
	}
	if p.Kd > 0 {
		cfg.Kd = p.Kd
	}
	if p.KTurn > 0 {
		cfg.KTurn = p.KTurn
	}
	if p.Tolerance > 0 {
		cfg.Tolerance = p.Tolerance
	}
	if p.AngleTolerance > 0 {
		cfg.AngleTolerance = p.AngleTolerance
	}
	if p.BaseSpeed > 0 {
		cfg.BaseSpeed = p.BaseSpeed
	}
	return cfg
}

// TuningParams returns the driver's current tuning parameters.
func (d *Driver) TuningParams() TuningParams {
	return TuningFromConfig(d.Controller().Config())
}

// SetTuningParams updates tuning parameters at runtime.
// Only non-zero values are applied. The field composer is kept.
func (d *Driver) SetTuningParams(p TuningParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg := p.Apply(d.ctrl.Config())
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.ctrl = motion.NewController(cfg, d.ctrl.Field())
	d.logger.Infow("tuning updated", "kp", cfg.Kp, "kd", cfg.Kd, "k_turn", cfg.KTurn, "base_speed", cfg.BaseSpeed)
	return nil
}
