package web

import (
	"sync"
	"time"
)

// PositionFrame is the per-cycle snapshot pushed to websocket clients
// and embedded in the status response.
type PositionFrame struct {
	Time       string  `json:"time"`
	Valid      bool    `json:"valid"`
	LatDeg     float64 `json:"lat_deg"`
	LonDeg     float64 `json:"lon_deg"`
	AccuracyM  int     `json:"accuracy_m"`
	Locator    string  `json:"locator"`
	Knots      int     `json:"knots"`
	BearingDeg int     `json:"bearing_deg"`
	Cardinal   string  `json:"cardinal,omitempty"`
}

// PositionBroadcaster fans out position frames to any listeners. It
// keeps the most recent frame so new subscribers get an immediate
// sample.
type PositionBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan PositionFrame
	nextID   int
	last     PositionFrame
	haveLast bool
}

func NewPositionBroadcaster() *PositionBroadcaster {
	return &PositionBroadcaster{
		subs: make(map[int]chan PositionFrame),
	}
}

func (b *PositionBroadcaster) Subscribe(buffer int) (int, <-chan PositionFrame) {
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan PositionFrame, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.haveLast {
		ch <- b.last // fresh buffered channel, cannot block
	}
	return id, ch
}

func (b *PositionBroadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers a frame to every subscriber, dropping it for any
// subscriber whose buffer is full.
//
// The sends happen under the lock: Unsubscribe closes channels under
// the same lock, so a subscriber leaving mid-publish cannot turn a
// delivery into a send on a closed channel. The sends never block, so
// holding the lock here is cheap.
func (b *PositionBroadcaster) Publish(frame PositionFrame) {
	if frame.Time == "" {
		frame.Time = time.Now().UTC().Format(time.RFC3339)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = frame
	b.haveLast = true
	for _, ch := range b.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Last returns the most recent frame, if any.
func (b *PositionBroadcaster) Last() (PositionFrame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.haveLast
}
