package discovery

import "errors"

var (
	// ErrInvalidTXT is returned when a service's TXT records are unusable.
	ErrInvalidTXT = errors.New("discovery: invalid TXT records")

	// ErrInvalidInfo is returned when advertising without an instance or port.
	ErrInvalidInfo = errors.New("discovery: invalid service info")
)
