package univector

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("univector: invalid field parameters")

// Params holds the five field constants. They are supplied by configuration and
// stay fixed for a planning session.
type Params struct {
	// De is the half-width of the two converging approach lanes (m).
	De float64 `json:"de" yaml:"de" mapstructure:"de"`

	// Kr is the approach-curvature gain (m). Larger values give wider spirals.
	Kr float64 `json:"kr" yaml:"kr" mapstructure:"kr"`

	// K0 scales the relative velocity used to shift an obstacle (s).
	K0 float64 `json:"k0" yaml:"k0" mapstructure:"k0"`

	// DMin is the full-avoidance radius around an obstacle (m).
	DMin float64 `json:"d_min" yaml:"d_min" mapstructure:"d_min"`

	// GaussianDelta is the decay width of the avoidance blend (m).
	GaussianDelta float64 `json:"gaussian_delta" yaml:"gaussian_delta" mapstructure:"gaussian_delta"`
}

// DefaultParams returns constants tuned for a 1.5 m x 1.3 m field and
// 7.5 cm robots.
func DefaultParams() Params {
	return Params{
		De:            0.08,
		Kr:            0.05,
		K0:            0.12,
		DMin:          0.07,
		GaussianDelta: 0.04,
	}
}

// Validate reports the first parameter that would make the field undefined.
func (p Params) Validate() error {
	switch {
	case p.De <= 0:
		return fmt.Errorf("%w: de must be positive, got %v", ErrInvalidParams, p.De)
	case p.Kr <= 0:
		return fmt.Errorf("%w: kr must be positive, got %v", ErrInvalidParams, p.Kr)
	case p.K0 < 0:
		return fmt.Errorf("%w: k0 must not be negative, got %v", ErrInvalidParams, p.K0)
	case p.DMin < 0:
		return fmt.Errorf("%w: d_min must not be negative, got %v", ErrInvalidParams, p.DMin)
	case p.GaussianDelta <= 0:
		return fmt.Errorf("%w: gaussian_delta must be positive, got %v", ErrInvalidParams, p.GaussianDelta)
	}
	return nil
}
