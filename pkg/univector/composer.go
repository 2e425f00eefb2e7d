package univector

import (
	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/obstacle"
)

// Result breaks a composed heading into its parts (for telemetry and tests).
type Result struct {
	Heading        float64 `json:"heading"`         // Final desired heading
	TargetApproach float64 `json:"target_approach"` // phi_tuf
	Avoidance      float64 `json:"avoidance"`       // phi_auf, 0 when there is no obstacle
	Weight         float64 `json:"weight"`          // Avoidance share: 0 = pure approach, 1 = pure avoidance

	HasObstacle     bool              `json:"has_obstacle"`
	Nearest         obstacle.Obstacle `json:"nearest"`
	NearestDistance float64           `json:"nearest_distance"`
}

// Composer blends the target-approach and avoidance fields with a fixed set of
// always-present obstacles (goal posts). It holds no mutable state and is safe
// for concurrent use.
type Composer struct {
	params Params
	fixed  []obstacle.Obstacle
}

// NewComposer creates a composer that appends fixed to every obstacle list.
func NewComposer(params Params, fixed ...obstacle.Obstacle) *Composer {
	return &Composer{
		params: params,
		fixed:  obstacle.Append(nil, fixed...),
	}
}

// NewFieldComposer creates a composer that always avoids the four goal posts of
// a field with the given dimensions.
func NewFieldComposer(params Params, fieldLength, goalWidth float64) *Composer {
	return NewComposer(params, obstacle.GoalPosts(fieldLength, goalWidth)...)
}

// Params returns the field constants.
func (c *Composer) Params() Params {
	return c.params
}

// Compose returns the desired heading at p for a robot moving with v toward
// target while avoiding obs.
func (c *Composer) Compose(p geometry.Point, v geometry.Velocity, target geometry.Point, obs []obstacle.Obstacle) float64 {
	return c.Evaluate(p, v, target, obs).Heading
}

// Evaluate is Compose with the intermediate fields exposed.
func (c *Composer) Evaluate(p geometry.Point, v geometry.Velocity, target geometry.Point, obs []obstacle.Obstacle) Result {
	tuf := TargetApproach(p, target, c.params)
	res := Result{Heading: tuf, TargetApproach: tuf}

	// The caller's slice is never written to
	all := obstacle.Append(obs, c.fixed...)
	nearest, ok := obstacle.Nearest(p, all)
	if !ok {
		return res
	}

	auf := Avoidance(p, v, nearest, c.params)
	d := geometry.Distance(p, nearest.Position)

	res.HasObstacle = true
	res.Nearest = nearest
	res.NearestDistance = d
	res.Avoidance = auf

	if d <= c.params.DMin {
		res.Weight = 1
		res.Heading = auf
		return res
	}

	w := GaussianWeight(d, c.params)
	res.Weight = w
	res.Heading = geometry.WrapToPi(tuf + w*geometry.SmallestAngleDifference(tuf, auf))
	return res
}
