package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/univector"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vss.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
field:
  de: 0.1
motion:
  kp: 25
  base_speed: 40
control:
  rate: 10ms
robots: [yellow-0, yellow-1]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 0.1, cfg.Field.De)
	assert.Equal(t, univector.DefaultParams().Kr, cfg.Field.Kr, "unset keys keep defaults")
	assert.Equal(t, 25.0, cfg.Motion.Kp)
	assert.Equal(t, 40.0, cfg.Motion.BaseSpeed)
	assert.Equal(t, motion.DefaultConfig().Kd, cfg.Motion.Kd)
	assert.Equal(t, 10*time.Millisecond, cfg.Control.Rate)
	assert.Equal(t, []string{"yellow-0", "yellow-1"}, cfg.Robots)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "motion:\n  kp: 25\n")
	t.Setenv("VSS_MOTION_KP", "18")
	t.Setenv("VSS_CONTROL_RATE", "20ms")
	t.Setenv("VSS_SERVER_DASHBOARD_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 18.0, cfg.Motion.Kp)
	assert.Equal(t, 20*time.Millisecond, cfg.Control.Rate)
	assert.Equal(t, ":9090", cfg.Server.DashboardAddr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "field:\n  de: -1\n")

	_, err := Load(path)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "field", verr.Field)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, univector.ErrInvalidParams)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative kp", func(c *Config) { c.Motion.Kp = -1 }, "motion"},
		{"zero wheel radius", func(c *Config) { c.Geometry.WheelRadius = 0 }, "geometry.wheel_radius"},
		{"goal wider than field", func(c *Config) { c.Geometry.GoalWidth = 2 }, "geometry.goal_width"},
		{"no robot addr", func(c *Config) { c.Server.RobotAddr = "" }, "server.robot_addr"},
		{"zero rate", func(c *Config) { c.Control.Rate = 0 }, "control.rate"},
		{"zero forget timeout", func(c *Config) { c.Control.ForgetTimeout = 0 }, "control.forget_timeout"},
		{"empty robot id", func(c *Config) { c.Robots = []string{""} }, "robots"},
		{"duplicate robot id", func(c *Config) { c.Robots = []string{"a", "a"} }, "robots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestMarshal_LoadsBack(t *testing.T) {
	cfg := Default()
	cfg.Motion = motion.AggressiveConfig()
	cfg.Robots = []string{"blue-0"}

	out, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "rate: 16ms")

	loaded, err := Load(writeConfig(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("VSS_SERVER_URL", "")
	t.Setenv("VSS_HUB_URL", "")
	assert.Equal(t, DefaultServerURL, ServerURL())
	assert.Equal(t, DefaultHubURL, HubURL())

	t.Setenv("VSS_SERVER_URL", "http://field:8080")
	t.Setenv("VSS_HUB_URL", "ws://field:8081")
	assert.Equal(t, "http://field:8080", ServerURL())
	assert.Equal(t, "ws://field:8081", HubURL())
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
