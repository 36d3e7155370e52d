package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback subscriptions to a channel
// for the SSE endpoint, which runs a channel-based select loop.
// When the channel is full the event is dropped and onDrop, if set, is called.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any, onDrop func(T)) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			if onDrop != nil {
				onDrop(e)
			}
		}
	})
}
