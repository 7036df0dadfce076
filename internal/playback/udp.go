package playback

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// MaxDatagramSize is the largest frame a receiver will accept.
const MaxDatagramSize = 1024

// UDPSender writes each frame as a single datagram to every endpoint.
//
// It is safe for concurrent use.
type UDPSender struct {
	conn      *net.UDPConn
	endpoints []*net.UDPAddr
	logger    Logger

	mu     sync.Mutex
	closed bool
}

// NewUDPSender resolves endpoints ("host:port") and opens an unbound UDP socket.
func NewUDPSender(endpoints []string, logger Logger) (*UDPSender, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if logger == nil {
		logger = noopLogger{}
	}

	addrs := make([]*net.UDPAddr, 0, len(endpoints))
	for _, ep := range endpoints {
		addr, err := net.ResolveUDPAddr("udp", ep)
		if err != nil {
			return nil, fmt.Errorf("resolving endpoint %q: %w", ep, err)
		}
		addrs = append(addrs, addr)
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("opening udp socket: %w", err)
	}
	logger.Debug("udp sender ready", "endpoints", endpoints)
	return &UDPSender{conn: conn, endpoints: addrs, logger: logger}, nil
}

// Send implements Sink. Every endpoint is attempted; failures are joined.
func (s *UDPSender) Send(frame []byte) error {
	if len(frame) > MaxDatagramSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame))
	}

	var errs []error
	for _, addr := range s.endpoints {
		if _, err := s.conn.WriteToUDP(frame, addr); err != nil {
			errs = append(errs, fmt.Errorf("sending to %s: %w", addr, err))
		}
	}
	return errors.Join(errs...)
}

// Endpoints returns the resolved endpoint addresses.
func (s *UDPSender) Endpoints() []string {
	out := make([]string, len(s.endpoints))
	for i, a := range s.endpoints {
		out[i] = a.String()
	}
	return out
}

// Close closes the socket. Subsequent calls are no-ops.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
