package main

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-vss/internal/httpc"
	"github.com/teslashibe/go-vss/internal/log"
	"github.com/teslashibe/go-vss/pkg/geometry"
	"github.com/teslashibe/go-vss/pkg/protocol"
	"github.com/teslashibe/go-vss/pkg/robot"
	"github.com/teslashibe/go-vss/pkg/sim"
)

const (
	// pingEvery is how many steps pass between latency probes
	pingEvery = 60

	// The dashboard may come up after the simulator
	goalAttempts = 10
	goalRetry    = 500 * time.Millisecond
)

type simulator struct {
	hubURL      string
	serverURL   string
	wheelRadius float64
	body        sim.Body
	rate        time.Duration
	ball        *geometry.Point
	goal        *robot.Goal
}

// runRobot connects r to the hub and steps it until ctx is done or the
// connection drops.
func (s *simulator) runRobot(ctx context.Context, r *sim.Robot, reportBall bool) error {
	logger := log.With("robot", r.ID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.hubURL+"/ws/robot/"+r.ID, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Infow("connected to hub")

	write := func(msg *protocol.Message, err error) error {
		if err != nil {
			return err
		}
		return send(conn, msg)
	}

	readErr := make(chan error, 1)
	go func() { readErr <- s.readLoop(conn, r) }()

	if s.goal != nil {
		go func() {
			if err := s.postGoal(ctx, r.ID); err != nil {
				logger.Warnw("initial goal not set", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()
	dt := s.rate.Seconds()

	var step uint64
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return nil

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return err

		case <-ticker.C:
			r.Step(dt)
			pose, vel := r.State()

			if err := write(protocol.NewStateMessage(pose, &vel)); err != nil {
				return err
			}
			if reportBall && s.ball != nil {
				if err := write(protocol.NewBallMessage(*s.ball)); err != nil {
					return err
				}
			}
			if step%pingEvery == 0 {
				if err := write(protocol.NewPingMessage(r.ID)); err != nil {
					return err
				}
			}
			step++
		}
	}
}

// postGoal waits for the dashboard API to answer, then sends the initial goal.
func (s *simulator) postGoal(ctx context.Context, id string) error {
	var err error
	for attempt := 0; attempt < goalAttempts; attempt++ {
		if err = httpc.GetJSON(ctx, s.serverURL+"/api/status", nil); err == nil {
			return httpc.PostJSON(ctx, s.serverURL+"/api/robots/"+id+"/goal", s.goal, nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(goalRetry):
		}
	}
	return err
}

// readLoop applies wheel commands until the connection closes.
func (s *simulator) readLoop(conn *websocket.Conn, r *sim.Robot) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Debug("bad message from hub", "robot", r.ID, "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeWheels:
			wheels, err := msg.GetWheelsData()
			if err != nil {
				log.Debug("bad wheels", "robot", r.ID, "error", err)
				continue
			}
			r.SetWheels(wheels.Speeds(s.wheelRadius))

		case protocol.TypePong:
			pong, err := msg.GetPongData()
			if err == nil {
				rtt := time.Duration(time.Now().UnixMilli()-pong.PingTS) * time.Millisecond
				log.Debug("hub latency", "robot", r.ID, "rtt", rtt)
			}
		}
	}
}

func send(conn *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	}
	return nil
}
