package websocket

import (
	"github.com/blackmagic-app/blackmagic/internal/events"
)

// Observer forwards dispatched events to WebSocket clients.
type Observer struct {
	hub *Hub
}

// NewObserver creates an observer that broadcasts every event on hub.
func NewObserver(hub *Hub) *Observer {
	return &Observer{hub: hub}
}

// OnEvent broadcasts the event.
func (o *Observer) OnEvent(event events.Event) error {
	if o.hub == nil {
		return nil
	}
	o.hub.BroadcastEvent(Event{Type: event.Type, Data: event.Data})
	return nil
}

// GetName returns the observer's name.
func (o *Observer) GetName() string {
	return "WebSocketObserver"
}

// ShouldHandle returns true for all events.
func (o *Observer) ShouldHandle(eventType string) bool {
	return true
}

var _ events.Observer = (*Observer)(nil)
