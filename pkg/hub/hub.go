// Package hub fans published messages out to websocket subscribers. Each
// message carries a topic (a robot id for telemetry) and subscribers choose
// which topics they receive.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-vss/internal/log"
)

// queueSize bounds both the publish queue and each subscriber's backlog.
const queueSize = 256

type envelope struct {
	topic string
	data  []byte
}

// Hub owns the subscriber set. All membership changes go through Run.
type Hub struct {
	name string

	subscribers map[*Client]struct{}
	publish     chan envelope
	join        chan *Client
	leave       chan *Client

	// Closed when Run returns; joins and leaves after that are no-ops
	done chan struct{}

	// Guards subscribers for Subscribers
	mu sync.RWMutex

	running atomic.Bool
	dropped atomic.Uint64
}

// New creates a hub. name only appears in logs.
func New(name string) *Hub {
	return &Hub{
		name:        name,
		subscribers: make(map[*Client]struct{}),
		publish:     make(chan envelope, queueSize),
		join:        make(chan *Client),
		leave:       make(chan *Client),
		done:        make(chan struct{}),
	}
}

// Run delivers published messages until ctx is done, then disconnects every
// subscriber. A hub runs once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.subscribers {
				h.drop(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.join:
			h.mu.Lock()
			h.subscribers[c] = struct{}{}
			n := len(h.subscribers)
			h.mu.Unlock()
			log.Debug("subscriber joined", "hub", h.name, "topics", c.topics, "subscribers", n)

		case c := <-h.leave:
			h.mu.Lock()
			if _, ok := h.subscribers[c]; ok {
				h.drop(c)
			}
			n := len(h.subscribers)
			h.mu.Unlock()
			log.Debug("subscriber left", "hub", h.name, "subscribers", n)

		case env := <-h.publish:
			h.mu.Lock()
			for c := range h.subscribers {
				if !c.wants(env.topic) {
					continue
				}
				select {
				case c.send <- env.data:
				default:
					h.drop(c)
					log.Warn("dropped slow subscriber", "hub", h.name, "topic", env.topic)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop removes c and closes its queue. Callers hold mu.
func (h *Hub) drop(c *Client) {
	delete(h.subscribers, c)
	close(c.send)
}

// Publish queues data for every subscriber of topic. It never blocks: when the
// queue is full the message is discarded.
func (h *Hub) Publish(topic string, data []byte) {
	select {
	case h.publish <- envelope{topic: topic, data: data}:
	default:
		if n := h.dropped.Add(1); n%100 == 1 {
			log.Warn("publish queue full, discarding", "hub", h.name, "dropped", n)
		}
	}
}

// PublishJSON encodes v and publishes it on topic.
func (h *Hub) PublishJSON(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Publish(topic, data)
	return nil
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Running reports whether Run is active.
func (h *Hub) Running() bool {
	return h.running.Load()
}

// Dropped returns how many published messages were discarded.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
