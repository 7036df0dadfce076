// Package musictime converts musical positions into seconds and frames.
//
// Cues are authored against the music: "bar 17, beat 3, tick 12". Given a
// tempo (beats per minute), a time signature (beats per bar) and a tick
// resolution (pulses per beat), a position resolves to
//
//	seconds = (bar-1)·beatsPerBar·spb + (beat-1)·spb + (tick-1)/ppb·spb
//
// where spb = 60/bpm. All components are 1-indexed, so "1.1.1" is the
// downbeat of the first bar at t = 0. A frame index is then
// floor(seconds × frameRate).
package musictime
