package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for encode lifecycle events.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(FrameProgressEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case EncodeStartedEvent:
		event.Publish(b.dispatcher, e)
	case FrameProgressEvent:
		event.Publish(b.dispatcher, e)
	case EncodeFinishedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; its parameter type selects the events it
// receives. Unknown handler types get a no-op unsubscribe.
// Usage: unsub := bus.Subscribe(func(e EncodeFinishedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(EncodeStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EncodeFinishedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T into ch, dropping them when
// ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
