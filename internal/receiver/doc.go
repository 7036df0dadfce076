// Package receiver reconstructs device state from the frame stream.
//
// A NetworkReceiver listens on UDP. Each datagram is a raw universe; it is
// decoded into a new immutable *State that replaces the previous one in an
// atomic slot. Nothing else is shared between the receive goroutine and
// consumers.
//
// A RenderLoop polls the slot at a fixed rate and hands each new State to
// its Renderers: a terminal text view, an MQTT state publisher, or any
// RendererFunc (the control API's WebSocket hub uses one).
//
// # Short Datagrams
//
// A datagram shorter than the universe is handled by Policy:
//
//   - PolicyReject (default): dropped with ErrProtocol; the previous state stays
//   - PolicyPartial: devices that fit are decoded, the rest carry over
//
// Datagrams longer than the universe are accepted; the extra bytes are ignored.
//
// # Initial State
//
// Before the first datagram the slot holds a random universe drawn from an
// explicitly seeded source, so a given seed always shows the same start.
package receiver
