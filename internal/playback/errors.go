package playback

import "errors"

// Sentinel errors for playback operations.
var (
	// ErrAlreadyPlaying is returned when a session is started while another runs.
	ErrAlreadyPlaying = errors.New("playback: already playing")

	// ErrNotPlaying is returned when stopping with no active session.
	ErrNotPlaying = errors.New("playback: not playing")

	// ErrInvalidFrameRate is returned for a non-positive frame rate.
	ErrInvalidFrameRate = errors.New("playback: invalid frame rate")

	// ErrNoEndpoints is returned when a sender has nowhere to send.
	ErrNoEndpoints = errors.New("playback: no endpoints")

	// ErrFrameTooLarge is returned for frames that exceed one datagram.
	ErrFrameTooLarge = errors.New("playback: frame exceeds datagram size")

	// ErrSessionNotFound is returned when no session record matches.
	ErrSessionNotFound = errors.New("playback: session not found")

	// ErrInvalidCommand is returned for a malformed remote command.
	ErrInvalidCommand = errors.New("playback: invalid command")
)
