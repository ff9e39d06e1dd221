// Package router provides an in-process notification bus announcing routing
// map changes, so holders of cached routing state can refresh it.
package router

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// NotificationType represents the type of notification.
type NotificationType int

const (
	// MapInstalled announces a complete routing map replacing the previous one.
	MapInstalled NotificationType = iota
	// RangesSplit announces parent ranges replaced by their children.
	RangesSplit
)

func (t NotificationType) String() string {
	switch t {
	case MapInstalled:
		return "MapInstalled"
	case RangesSplit:
		return "RangesSplit"
	default:
		return "Unknown"
	}
}

// Notification describes one routing map change.
type Notification struct {
	Type      NotificationType
	Container string
	// RangeIDs are the ranges that disappeared (RangesSplit) or the full new
	// set (MapInstalled).
	RangeIDs  []string
	Timestamp int64
}

// Notifier provides an in-process pub/sub notification bus.
type Notifier struct {
	subscribers sync.Map
	bufferSize  int
}

// NewNotifier creates a new notifier instance.
func NewNotifier(bufferSize int) *Notifier {
	return &Notifier{bufferSize: bufferSize}
}

// Publish sends a notification to all subscribers.
// Non-blocking: if a subscriber's channel is full, the notification is dropped.
func (n *Notifier) Publish(notif Notification) {
	n.subscribers.Range(func(_, value interface{}) bool {
		sub := value.(*Subscriber)
		if sub.matches(notif.Container) {
			sub.send(notif)
		}
		return true
	})
}

// Subscribe registers a subscriber for the given container name prefixes.
// No filters means every container. An empty id gets a generated one. A
// subscriber already registered under id is replaced and its channel closed.
func (n *Notifier) Subscribe(id string, filters ...string) *Subscriber {
	if id == "" {
		id = "sub_" + uuid.New().String()
	}
	sub := &Subscriber{
		ID:      id,
		Filters: filters,
		Ch:      make(chan Notification, n.bufferSize),
	}
	if old, loaded := n.subscribers.Swap(sub.ID, sub); loaded {
		old.(*Subscriber).close()
	}
	return sub
}

// Unsubscribe removes a subscriber from the notifier and closes their channel.
func (n *Notifier) Unsubscribe(subID string) {
	if value, ok := n.subscribers.LoadAndDelete(subID); ok {
		value.(*Subscriber).close()
	}
}

// Subscriber represents a notification subscriber.
type Subscriber struct {
	ID      string
	Filters []string
	Ch      chan Notification

	// mu orders sends against close; a Publish may still hold the
	// subscriber after Unsubscribe removed it.
	mu     sync.Mutex
	closed bool
}

func (s *Subscriber) send(notif Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.Ch <- notif:
	default:
		// Channel full - drop notification, do NOT block
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.Ch)
	}
}

func (s *Subscriber) matches(container string) bool {
	if len(s.Filters) == 0 {
		return true
	}
	for _, filter := range s.Filters {
		if strings.HasPrefix(container, filter) {
			return true
		}
	}
	return false
}
