// Package config loads go-vss settings from a YAML file and VSS_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/univector"
)

// EnvPrefix is prepended to every environment override (VSS_MOTION_KP, ...).
const EnvPrefix = "VSS"

// ErrInvalidConfig is wrapped by every ValidationError.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ValidationError describes the first invalid setting found by Validate.
type ValidationError struct {
	Field  string // Dotted key, e.g. "geometry.wheel_radius"
	Reason string
	Err    error // Underlying package error, if any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap exposes ErrInvalidConfig and the underlying cause to errors.Is.
func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidConfig}
	}
	return []error{ErrInvalidConfig, e.Err}
}

// Config is the full runtime configuration.
type Config struct {
	Log      LogConfig        `mapstructure:"log" yaml:"log"`
	Field    univector.Params `mapstructure:"field" yaml:"field"`
	Motion   motion.Config    `mapstructure:"motion" yaml:"motion"`
	Geometry GeometryConfig   `mapstructure:"geometry" yaml:"geometry"`
	Server   ServerConfig     `mapstructure:"server" yaml:"server"`
	Control  ControlConfig    `mapstructure:"control" yaml:"control"`
	Robots   []string         `mapstructure:"robots" yaml:"robots"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// GeometryConfig describes the field and the robots (m).
type GeometryConfig struct {
	FieldLength float64 `mapstructure:"field_length" yaml:"field_length"`
	FieldWidth  float64 `mapstructure:"field_width" yaml:"field_width"`
	GoalWidth   float64 `mapstructure:"goal_width" yaml:"goal_width"`
	WheelRadius float64 `mapstructure:"wheel_radius" yaml:"wheel_radius"`
	WheelBase   float64 `mapstructure:"wheel_base" yaml:"wheel_base"`
}

// ServerConfig holds listen addresses.
type ServerConfig struct {
	RobotAddr     string `mapstructure:"robot_addr" yaml:"robot_addr"`         // Robot/simulator websocket hub
	DashboardAddr string `mapstructure:"dashboard_addr" yaml:"dashboard_addr"` // REST API and telemetry
}

// ControlConfig tunes the per-robot control loops.
type ControlConfig struct {
	Rate          time.Duration `mapstructure:"rate" yaml:"rate"`                     // Tick period
	ForgetTimeout time.Duration `mapstructure:"forget_timeout" yaml:"forget_timeout"` // Drop robots not seen for this long
}

// Default returns the configuration used when no file or env override is set.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Field:  univector.DefaultParams(),
		Motion: motion.DefaultConfig(),
		Geometry: GeometryConfig{
			FieldLength: 1.5,
			FieldWidth:  1.3,
			GoalWidth:   0.4,
			WheelRadius: 0.025,
			WheelBase:   0.075,
		},
		Server: ServerConfig{
			RobotAddr:     ":8081",
			DashboardAddr: ":8080",
		},
		Control: ControlConfig{
			Rate:          16 * time.Millisecond,
			ForgetTimeout: 2 * time.Second,
		},
		Robots: []string{"blue-0", "blue-1", "blue-2"},
	}
}

// Load reads path (or ./vss.yaml when path is empty) and applies VSS_*
// environment overrides on top of the defaults. A missing default file is not
// an error. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("vss")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("log.level", d.Log.Level)

	v.SetDefault("field.de", d.Field.De)
	v.SetDefault("field.kr", d.Field.Kr)
	v.SetDefault("field.k0", d.Field.K0)
	v.SetDefault("field.d_min", d.Field.DMin)
	v.SetDefault("field.gaussian_delta", d.Field.GaussianDelta)

	v.SetDefault("motion.kp", d.Motion.Kp)
	v.SetDefault("motion.kd", d.Motion.Kd)
	v.SetDefault("motion.k_turn", d.Motion.KTurn)
	v.SetDefault("motion.tolerance", d.Motion.Tolerance)
	v.SetDefault("motion.angle_tolerance", d.Motion.AngleTolerance)
	v.SetDefault("motion.reverse_threshold", d.Motion.ReverseThreshold)
	v.SetDefault("motion.base_speed", d.Motion.BaseSpeed)

	v.SetDefault("geometry.field_length", d.Geometry.FieldLength)
	v.SetDefault("geometry.field_width", d.Geometry.FieldWidth)
	v.SetDefault("geometry.goal_width", d.Geometry.GoalWidth)
	v.SetDefault("geometry.wheel_radius", d.Geometry.WheelRadius)
	v.SetDefault("geometry.wheel_base", d.Geometry.WheelBase)

	v.SetDefault("server.robot_addr", d.Server.RobotAddr)
	v.SetDefault("server.dashboard_addr", d.Server.DashboardAddr)

	v.SetDefault("control.rate", d.Control.Rate)
	v.SetDefault("control.forget_timeout", d.Control.ForgetTimeout)

	v.SetDefault("robots", d.Robots)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Field.Validate(); err != nil {
		return &ValidationError{Field: "field", Reason: err.Error(), Err: err}
	}
	if err := c.Motion.Validate(); err != nil {
		return &ValidationError{Field: "motion", Reason: err.Error(), Err: err}
	}

	positive := []struct {
		key string
		val float64
	}{
		{"geometry.field_length", c.Geometry.FieldLength},
		{"geometry.field_width", c.Geometry.FieldWidth},
		{"geometry.goal_width", c.Geometry.GoalWidth},
		{"geometry.wheel_radius", c.Geometry.WheelRadius},
		{"geometry.wheel_base", c.Geometry.WheelBase},
	}
	for _, p := range positive {
		if p.val <= 0 {
			return &ValidationError{Field: p.key, Reason: fmt.Sprintf("must be positive, got %v", p.val)}
		}
	}
	if c.Geometry.GoalWidth >= c.Geometry.FieldWidth {
		return &ValidationError{Field: "geometry.goal_width", Reason: "must be narrower than the field"}
	}

	if c.Server.RobotAddr == "" {
		return &ValidationError{Field: "server.robot_addr", Reason: "must be set"}
	}
	if c.Server.DashboardAddr == "" {
		return &ValidationError{Field: "server.dashboard_addr", Reason: "must be set"}
	}
	if c.Control.Rate <= 0 {
		return &ValidationError{Field: "control.rate", Reason: fmt.Sprintf("must be positive, got %v", c.Control.Rate)}
	}
	if c.Control.ForgetTimeout <= 0 {
		return &ValidationError{Field: "control.forget_timeout", Reason: fmt.Sprintf("must be positive, got %v", c.Control.ForgetTimeout)}
	}

	seen := make(map[string]bool, len(c.Robots))
	for _, id := range c.Robots {
		if id == "" {
			return &ValidationError{Field: "robots", Reason: "robot id must not be empty"}
		}
		if seen[id] {
			return &ValidationError{Field: "robots", Reason: fmt.Sprintf("duplicate robot id %q", id)}
		}
		seen[id] = true
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
