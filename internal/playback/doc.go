// Package playback streams compiled frame stores to receivers in real time.
//
// The Player sends frame i at start + i/frameRate, where start is taken
// once before the first frame. Each deadline is computed from that fixed
// origin, so scheduling error never accumulates across a show. A frame
// that is already late is sent immediately; frames are never skipped.
//
// Frames go out through a Sink. UDPSender writes each frame as one raw
// datagram to every configured endpoint with no envelope. Delivery and
// ordering are not guaranteed and a failed send never stops the show.
//
// The Controller runs one Player in the background for a named sequence,
// exposes its status, and records each session.
//
// # Cancellation
//
// Cancelling the context stops playback at the next frame boundary.
// Nothing further is sent, so receivers hold the last frame they got.
package playback
