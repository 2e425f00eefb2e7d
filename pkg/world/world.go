// Package world keeps the latest pose and estimated velocity of every robot and
// the ball on the field, and builds obstacle snapshots for the planner.
package world

import (
	"sort"
	"sync"
	"time"

	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/obstacle"
)

// BallID is the entity id used for the ball.
const BallID = "ball"

// Entity is one tracked body on the field.
type Entity struct {
	ID       string            `json:"id"`
	Pose     geometry.Pose     `json:"pose"`
	Velocity geometry.Velocity `json:"velocity"`
	LastSeen time.Time         `json:"last_seen"`
}

// Model is a thread-safe snapshot of the field.
type Model struct {
	mu       sync.RWMutex
	entities map[string]*Entity

	// Configuration
	velocitySmoothing float64       // EMA weight of the previous velocity
	forgetTimeout     time.Duration // Drop entities not seen for this long

	now func() time.Time
}

// New creates an empty world model.
func New() *Model {
	return &Model{
		entities:          make(map[string]*Entity),
		velocitySmoothing: 0.7,
		forgetTimeout:     2 * time.Second,
		now:               time.Now,
	}
}

// SetForgetTimeout changes how long an unseen entity is kept.
func (m *Model) SetForgetTimeout(d time.Duration) {
	m.mu.Lock()
	m.forgetTimeout = d
	m.mu.Unlock()
}

// Update records a new pose for id. When vel is nil the velocity is estimated
// from the previous pose.
func (m *Model) Update(id string, pose geometry.Pose, vel *geometry.Velocity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pose.Theta = geometry.NormalizeAngle(pose.Theta)
	now := m.now()
	e, exists := m.entities[id]
	if !exists {
		e = &Entity{ID: id, Pose: pose, LastSeen: now}
		if vel != nil {
			e.Velocity = *vel
		}
		m.entities[id] = e
		return
	}

	if vel != nil {
		e.Velocity = *vel
	} else if dt := now.Sub(e.LastSeen).Seconds(); dt > 0 {
		raw := geometry.Velocity{
			X:     (pose.X - e.Pose.X) / dt,
			Y:     (pose.Y - e.Pose.Y) / dt,
			Theta: geometry.SmallestAngleDifference(e.Pose.Theta, pose.Theta) / dt,
		}
		a := m.velocitySmoothing
		e.Velocity = geometry.Velocity{
			X:     a*e.Velocity.X + (1-a)*raw.X,
			Y:     a*e.Velocity.Y + (1-a)*raw.Y,
			Theta: a*e.Velocity.Theta + (1-a)*raw.Theta,
		}
	}
	e.Pose = pose
	e.LastSeen = now
}

// UpdateBall records a new ball position.
func (m *Model) UpdateBall(p geometry.Point) {
	m.Update(BallID, geometry.Pose{X: p.X, Y: p.Y}, nil)
}

// Get returns a copy of the entity with id.
func (m *Model) Get(id string) (Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entities[id]
	if !ok || m.stale(e) {
		return Entity{}, false
	}
	return *e, true
}

// Ball returns the ball position.
func (m *Model) Ball() (geometry.Point, bool) {
	e, ok := m.Get(BallID)
	return e.Pose.Point(), ok
}

// Robots returns copies of every fresh robot, sorted by id.
func (m *Model) Robots() []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Entity, 0, len(m.entities))
	for id, e := range m.entities {
		if id == BallID || m.stale(e) {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Obstacles returns every fresh robot except exclude as a moving obstacle, in
// id order. The ball is never an obstacle.
func (m *Model) Obstacles(exclude string) []obstacle.Obstacle {
	robots := m.Robots()
	obs := make([]obstacle.Obstacle, 0, len(robots))
	for _, r := range robots {
		if r.ID == exclude {
			continue
		}
		obs = append(obs, obstacle.Moving(r.Pose.Point(), r.Velocity))
	}
	return obs
}

// Forget drops entities that have not been seen within the forget timeout and
// returns their ids.
func (m *Model) Forget() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, e := range m.entities {
		if m.stale(e) {
			delete(m.entities, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}

// Remove drops id immediately.
func (m *Model) Remove(id string) {
	m.mu.Lock()
	delete(m.entities, id)
	m.mu.Unlock()
}

// Clear removes all tracked entities.
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities = make(map[string]*Entity)
}

func (m *Model) stale(e *Entity) bool {
	return m.now().Sub(e.LastSeen) > m.forgetTimeout
}
