package pipeline

import (
	"sync"
	"time"
)

// EventType identifies a progress event.
type EventType string

const (
	EventStateChange   EventType = "state_change"
	EventStageStarted  EventType = "stage_started"
	EventStageFinished EventType = "stage_finished"
)

// Event is one progress update from a running pipeline.
type Event struct {
	RunID     string    `json:"run_id"`
	Type      EventType `json:"type"`
	State     State     `json:"state,omitempty"`
	Stage     int       `json:"stage,omitempty"`
	Strategy  string    `json:"strategy,omitempty"`
	Output    int       `json:"output,omitempty"`
	Shortfall int       `json:"shortfall,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster fans pipeline events out to subscribers. Slow subscribers drop
// events instead of stalling the pipeline.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewBroadcaster creates an event broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Subscribe returns a buffered event channel and an unsubscribe function.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	once := sync.Once{}
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish sends an event to every subscriber without blocking.
func (b *Broadcaster) Publish(event Event) {
	event.Timestamp = time.Now().UTC()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
