// Package nats carries the lamp's push notifications over NATS and announces
// committed states back onto it.
//
// # Architecture
//
//   - PushSubscriber: buffers notifications for one installation until the
//     control loop drains them
//   - PushPublisher: sends notifications (lampnode push, development)
//   - Bridge: forwards state changes from the event bus to NATS
//   - Server: optional embedded NATS server for boards without a broker
//
// # Subject Hierarchy
//
//	lampnode.push.{installation_id}    # notification bodies (backend → device)
//	lampnode.state.{installation_id}   # committed states (device → listeners)
//
// Messaging is fire-and-forget core NATS. The subscriber gracefully degrades
// when NATS is unavailable: the lamp keeps working from its button.
//
// # Debugging with nats CLI
//
// Follow the lamp:
//
//	nats sub "lampnode.state.>"
//
// Switch it on by hand:
//
//	nats pub "lampnode.push.my-installation" '{"data":"{\"alert\":\"on\"}"}'
//
// # Message Formats
//
// Push body (lampnode.push.{id}), exactly as the backend sends it:
//
//	{"data": "{\"alert\":\"blink\"}"}
//
// StateMessage (lampnode.state.{id}):
//
//	{
//	  "installation_id": "my-installation",
//	  "timestamp": "2025-01-27T10:30:00Z",
//	  "from": "blink",
//	  "state": "off",
//	  "source": "button"
//	}
package nats
