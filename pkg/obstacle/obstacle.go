// Package obstacle models the things a robot must steer around: other robots,
// the ball, and the fixed goal posts.
//
// An Obstacle is a snapshot of sensed state for one planning call. Lists are
// built fresh every tick and never persisted.
package obstacle

import "github.com/teslashibe/go-vss/pkg/geometry"

// Obstacle is a point with a velocity.
type Obstacle struct {
	Position geometry.Point    `json:"position"`
	Velocity geometry.Velocity `json:"velocity"`
}

// At returns a static obstacle at p.
func At(p geometry.Point) Obstacle {
	return Obstacle{Position: p}
}

// Moving returns an obstacle at p moving with v.
func Moving(p geometry.Point, v geometry.Velocity) Obstacle {
	return Obstacle{Position: p, Velocity: v}
}

// Nearest returns the obstacle closest to position.
// On an exact tie the later obstacle in the list wins.
// Returns false when obstacles is empty.
func Nearest(position geometry.Point, obstacles []Obstacle) (Obstacle, bool) {
	if len(obstacles) == 0 {
		return Obstacle{}, false
	}

	nearest := obstacles[0]
	minDist := geometry.Distance(position, nearest.Position)
	for _, o := range obstacles[1:] {
		if d := geometry.Distance(position, o.Position); d <= minDist {
			minDist = d
			nearest = o
		}
	}
	return nearest, true
}

// GoalPosts returns the four corners of both goal mouths for a field of the
// given length centered on the origin, goals on the x axis.
func GoalPosts(fieldLength, goalWidth float64) []Obstacle {
	hx, hy := fieldLength/2, goalWidth/2
	return []Obstacle{
		At(geometry.Point{X: hx, Y: hy}),
		At(geometry.Point{X: hx, Y: -hy}),
		At(geometry.Point{X: -hx, Y: hy}),
		At(geometry.Point{X: -hx, Y: -hy}),
	}
}

// Append returns a new list holding obstacles followed by extra.
// Neither input is modified.
func Append(obstacles []Obstacle, extra ...Obstacle) []Obstacle {
	out := make([]Obstacle, 0, len(obstacles)+len(extra))
	out = append(out, obstacles...)
	return append(out, extra...)
}
