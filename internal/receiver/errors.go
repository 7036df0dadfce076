package receiver

import "errors"

// Sentinel errors for receiver operations.
var (
	// ErrProtocol is returned for a datagram the active policy cannot use.
	ErrProtocol = errors.New("receiver: protocol error")

	// ErrInvalidPolicy is returned for an unknown short-payload policy.
	ErrInvalidPolicy = errors.New("receiver: invalid policy")

	// ErrNotListening is returned by Run before Listen succeeds.
	ErrNotListening = errors.New("receiver: not listening")
)
