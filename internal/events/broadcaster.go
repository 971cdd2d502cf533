// Package events fans download lifecycle updates out to subscribed
// observers. Delivery is synchronous: a slow subscriber is the transport
// layer's problem, not this package's.
package events

import (
	"sync"

	"github.com/fetcharr/fetcharr/internal/data"
)

// UpdateType classifies an Update for subscribers.
type UpdateType string

const (
	TypeProgress UpdateType = "progress"
	TypeStatus   UpdateType = "status"
	TypeError    UpdateType = "error"
	TypeComplete UpdateType = "complete"
	// TypeInit carries the full table snapshot for a newly attached
	// subscriber, outside the regular event stream.
	TypeInit UpdateType = "init"
)

// Update is one published event. Data carries only the changed fields;
// Snapshot is set on init updates only.
type Update struct {
	Type       UpdateType     `json:"type"`
	DownloadID string         `json:"downloadId,omitempty"`
	Data       *data.Patch    `json:"data,omitempty"`
	Snapshot   data.Downloads `json:"snapshot,omitempty"`
}

// Broadcaster invokes every registered callback for each published
// update. Callbacks run on the publisher's goroutine, in subscription
// order; there is no queuing or backpressure.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]func(Update)
	nextID int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]func(Update))}
}

// Subscribe registers fn and returns a token for Unsubscribe.
func (b *Broadcaster) Subscribe(fn func(Update)) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs[b.nextID] = fn
	return b.nextID
}

// Unsubscribe removes the callback; it receives nothing further.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Publish delivers u to every current subscriber synchronously.
func (b *Broadcaster) Publish(u Update) {
	b.mu.RLock()
	fns := make([]func(Update), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(u)
	}
}
