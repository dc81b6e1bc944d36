// Package streamsvc fans out topic snapshots to live subscribers.
package streamsvc

import (
	"encoding/json"
	"sync"

	"github.com/trezcool/darasa/core"
)

const subscriptionBuffer = 8

type (
	Hub struct {
		mu     sync.RWMutex
		logger core.Logger
		subs   map[string]map[*Subscription]struct{}
	}

	// Subscription receives the JSON snapshots published on a single topic.
	Subscription struct {
		hub    *Hub
		topic  string
		ch     chan []byte
		closed bool
	}
)

var _ core.Streamer = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		hub:   h,
		topic: topic,
		ch:    make(chan []byte, subscriptionBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	return sub
}

// Publish marshals the snapshot and delivers it to every subscriber on the
// topic. Slow subscribers with a full buffer miss the snapshot rather than
// block the publisher; the next publish catches them up.
func (h *Hub) Publish(topic string, snapshot interface{}) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Error("marshalling snapshot for topic "+topic, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[topic] {
		select {
		case sub.ch <- data:
		default:
		}
	}
}

func (s *Subscription) C() <-chan []byte { return s.ch }

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(s.hub.subs[s.topic], s)
	if len(s.hub.subs[s.topic]) == 0 {
		delete(s.hub.subs, s.topic)
	}
	close(s.ch)
}
