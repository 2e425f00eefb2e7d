// Package cloud provides the WebSocket hub that robots and simulators connect to.
// Incoming poses feed the world model; wheel commands go back out.
package cloud

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-vss/internal/log"
	"github.com/teslashibe/go-vss/pkg/motion"
	"github.com/teslashibe/go-vss/pkg/protocol"
	"github.com/teslashibe/go-vss/pkg/world"
)

// ErrNotConnected is returned when sending to a robot without a live connection.
var ErrNotConnected = errors.New("cloud: robot not connected")

// RobotConnection represents a connected robot
type RobotConnection struct {
	ID        string // Robot id
	ConnID    string // Unique per connection
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send sends a message to the robot
func (r *RobotConnection) Send(msg *protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	return r.Conn.WriteMessage(websocket.TextMessage, data)
}

// Hub manages WebSocket connections from robots
type Hub struct {
	mu          sync.RWMutex
	robots      map[string]*RobotConnection
	world       *world.Model
	wheelRadius float64

	// Callbacks
	onGoal func(robotID string, goal *protocol.GoalData)

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	statesReceived   atomic.Uint64
}

// NewHub creates a hub that records poses into w and converts wheel commands
// for wheels of the given radius (m).
func NewHub(w *world.Model, wheelRadius float64) *Hub {
	return &Hub{
		robots:      make(map[string]*RobotConnection),
		world:       w,
		wheelRadius: wheelRadius,
	}
}

// OnGoal sets the callback for goals sent by a robot connection
func (h *Hub) OnGoal(callback func(robotID string, goal *protocol.GoalData)) {
	h.mu.Lock()
	h.onGoal = callback
	h.mu.Unlock()
}

// RegisterRoutes registers WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// Robot connection endpoint
	app.Get("/ws/robot", websocket.New(h.handleRobot))
	app.Get("/ws/robot/:id", websocket.New(h.handleRobot))
}

// handleRobot handles a robot WebSocket connection
func (h *Hub) handleRobot(c *websocket.Conn) {
	// Get robot ID from path or generate one
	robotID := c.Params("id")
	if robotID == "" {
		robotID = generateRobotID()
	}

	robot := &RobotConnection{
		ID:        robotID,
		ConnID:    uuid.NewString(),
		Conn:      c,
		Connected: time.Now(),
		LastSeen:  time.Now(),
	}
	logger := log.With("robot", robotID, "conn", robot.ConnID)

	// Register robot; a reconnect replaces the old connection
	h.mu.Lock()
	h.robots[robotID] = robot
	robotCount := len(h.robots)
	h.mu.Unlock()

	logger.Infow("robot connected", "total", robotCount)

	defer func() {
		h.mu.Lock()
		if h.robots[robotID] == robot {
			delete(h.robots, robotID)
		}
		robotCount := len(h.robots)
		h.mu.Unlock()

		logger.Infow("robot disconnected", "total", robotCount)
	}()

	// Read loop
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			logger.Debugw("read error", "error", err)
			return
		}

		robot.mu.Lock()
		robot.LastSeen = time.Now()
		robot.mu.Unlock()

		h.messagesReceived.Add(1)
		if err := h.handleMessage(robotID, data); err != nil {
			logger.Warnw("bad message", "error", err)
		}
	}
}

// handleMessage processes an incoming message from a robot
func (h *Hub) handleMessage(robotID string, data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}

	switch msg.Type {
	case protocol.TypeState:
		state, err := msg.GetStateData()
		if err != nil {
			return fmt.Errorf("state: %w", err)
		}
		h.statesReceived.Add(1)
		if h.world != nil {
			h.world.Update(robotID, state.Pose, state.Velocity)
		}

	case protocol.TypeBall:
		ball, err := msg.GetBallData()
		if err != nil {
			return fmt.Errorf("ball: %w", err)
		}
		if h.world != nil {
			h.world.UpdateBall(ball.Position)
		}

	case protocol.TypeGoal:
		goal, err := msg.GetGoalData()
		if err != nil {
			return fmt.Errorf("goal: %w", err)
		}
		h.mu.RLock()
		goalCb := h.onGoal
		h.mu.RUnlock()
		if goalCb != nil {
			goalCb(robotID, goal)
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return h.SendPong(robotID, ping.ID, msg.Timestamp)

	case protocol.TypePong:
		// Keepalive only

	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnknownMessage, msg.Type)
	}
	return nil
}

// SendWheels sends a wheel command to a robot, converted to wheel angular
// velocity.
func (h *Hub) SendWheels(robotID string, ws motion.WheelSpeeds) error {
	msg, err := protocol.NewWheelsMessage(ws, h.wheelRadius)
	if err != nil {
		return err
	}
	return h.sendToRobot(robotID, msg)
}

// SendPong sends a pong response to a robot
func (h *Hub) SendPong(robotID, id string, pingTS int64) error {
	msg, err := protocol.NewPongMessage(id, pingTS)
	if err != nil {
		return err
	}
	return h.sendToRobot(robotID, msg)
}

// sendToRobot sends a message to a specific robot
func (h *Hub) sendToRobot(robotID string, msg *protocol.Message) error {
	h.mu.RLock()
	robot, ok := h.robots[robotID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotConnected, robotID)
	}

	h.messagesSent.Add(1)
	return robot.Send(msg)
}

// Broadcast sends a message to all connected robots
func (h *Hub) Broadcast(msg *protocol.Message) {
	for _, robot := range h.GetRobots() {
		h.messagesSent.Add(1)
		if err := robot.Send(msg); err != nil {
			log.Debug("broadcast failed", "robot", robot.ID, "error", err)
		}
	}
}

// GetRobot returns a robot connection by ID
func (h *Hub) GetRobot(robotID string) *RobotConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.robots[robotID]
}

// GetRobots returns all connected robots
func (h *Hub) GetRobots() []*RobotConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	robots := make([]*RobotConnection, 0, len(h.robots))
	for _, r := range h.robots {
		robots = append(robots, r)
	}
	return robots
}

// RobotCount returns the number of connected robots
func (h *Hub) RobotCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.robots)
}

// Stats contains hub statistics
type Stats struct {
	RobotCount       int    `json:"robot_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	StatesReceived   uint64 `json:"states_received"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		RobotCount:       h.RobotCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		StatesReceived:   h.statesReceived.Load(),
	}
}

// RobotInfo contains info about a connected robot
type RobotInfo struct {
	ID        string    `json:"id"`
	ConnID    string    `json:"conn_id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// GetRobotInfos returns info about all connected robots, sorted by id
func (h *Hub) GetRobotInfos() []RobotInfo {
	robots := h.GetRobots()

	infos := make([]RobotInfo, 0, len(robots))
	for _, r := range robots {
		r.mu.Lock()
		infos = append(infos, RobotInfo{
			ID:        r.ID,
			ConnID:    r.ConnID,
			Connected: r.Connected,
			LastSeen:  r.LastSeen,
		})
		r.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// RegisterAPIRoutes registers API routes for connection management
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	conns := api.Group("/connections")

	// List connected robots
	conns.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"connections": h.GetRobotInfos(),
			"count":       h.RobotCount(),
		})
	})

	// Get hub stats
	conns.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}

// generateRobotID generates a unique robot ID
func generateRobotID() string {
	return "robot-" + uuid.NewString()[:8]
}
