package motion

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("motion: invalid controller config")

// Config holds the gains and tolerances for the wheel-speed controllers.
type Config struct {
	// PD heading controller (point tracking). No integral term.
	Kp float64 `json:"kp" yaml:"kp" mapstructure:"kp"` // Proportional gain (speed units per rad)
	Kd float64 `json:"kd" yaml:"kd" mapstructure:"kd"` // Derivative gain (speed units per rad)

	// Heading tracking
	KTurn float64 `json:"k_turn" yaml:"k_turn" mapstructure:"k_turn"` // Turning share of base speed

	// Tolerances
	Tolerance        float64 `json:"tolerance" yaml:"tolerance" mapstructure:"tolerance"`                         // Goal radius (m)
	AngleTolerance   float64 `json:"angle_tolerance" yaml:"angle_tolerance" mapstructure:"angle_tolerance"`       // Final orientation dead zone (rad)
	ReverseThreshold float64 `json:"reverse_threshold" yaml:"reverse_threshold" mapstructure:"reverse_threshold"` // Drive backward beyond this error (rad)

	// Speed
	BaseSpeed float64 `json:"base_speed" yaml:"base_speed" mapstructure:"base_speed"` // Nominal wheel speed
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Kp: 20.0,
		Kd: 2.5,

		KTurn: 0.6,

		Tolerance:        0.05,
		AngleTolerance:   0.05,
		ReverseThreshold: math.Pi/2 + math.Pi/20, // ~99°

		BaseSpeed: 30,
	}
}

// CautiousConfig returns a configuration for slower, smoother driving
// (crowded areas, near the walls).
func CautiousConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseSpeed = 20
	cfg.Kp = 15
	cfg.Kd = 4.0 // More dampening
	cfg.KTurn = 0.5
	return cfg
}

// AggressiveConfig returns a configuration for fast attacking runs.
func AggressiveConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseSpeed = 45
	cfg.Kp = 30
	cfg.Kd = 1.5 // Less dampening
	cfg.KTurn = 0.8
	return cfg
}

// Validate reports the first value that would make the controller misbehave.
func (c Config) Validate() error {
	switch {
	case c.Kp < 0:
		return fmt.Errorf("%w: kp must not be negative, got %v", ErrInvalidConfig, c.Kp)
	case c.Kd < 0:
		return fmt.Errorf("%w: kd must not be negative, got %v", ErrInvalidConfig, c.Kd)
	case c.KTurn < 0:
		return fmt.Errorf("%w: k_turn must not be negative, got %v", ErrInvalidConfig, c.KTurn)
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive, got %v", ErrInvalidConfig, c.Tolerance)
	case c.AngleTolerance <= 0:
		return fmt.Errorf("%w: angle_tolerance must be positive, got %v", ErrInvalidConfig, c.AngleTolerance)
	case c.ReverseThreshold <= 0 || c.ReverseThreshold > math.Pi:
		return fmt.Errorf("%w: reverse_threshold must be in (0, π], got %v", ErrInvalidConfig, c.ReverseThreshold)
	case c.BaseSpeed <= 0:
		return fmt.Errorf("%w: base_speed must be positive, got %v", ErrInvalidConfig, c.BaseSpeed)
	}
	return nil
}
