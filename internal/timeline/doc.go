// Package timeline turns step instructions into a per-frame universe stream.
//
// Authors record instructions with Builder.Set: "at frame f, these devices
// take these attribute values". Rendering walks frames 0..N-1, applies the
// instructions scheduled at each frame to a live universe buffer (ascending
// frame, then authoring order, so the last write wins), and emits an
// independent snapshot per frame. Values hold until overwritten; there are
// no fades.
//
// Non-DMX cues (video, audio, pyro triggers) go into an EventList, which is
// never mixed into the universe.
package timeline
