package dispatcher

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/lonelyradio/lonelyradio/internal/logger"
)

// Server is a TCP listener plus accept loop handing every accepted
// connection to a Dispatcher. Grounded on internal/rtmp/server/server.go's
// Start/acceptLoop/Stop/Addr/ConnectionCount shape, simplified since this
// protocol's Dispatcher needs no stream Registry (no publish/subscribe
// fan-out to track, unlike RTMP's play/publish pairing).
type Server struct {
	addr string
	d    *Dispatcher

	mu      sync.Mutex
	l       net.Listener
	wg      sync.WaitGroup
	closing bool
	conns   map[net.Conn]struct{}
}

func NewServer(addr string, d *Dispatcher) *Server {
	return &Server{addr: addr, d: d, conns: make(map[net.Conn]struct{})}
}

// Start begins listening and launches the accept loop. Safe to call once;
// a second call returns an error.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.l != nil {
		s.mu.Unlock()
		return errors.New("dispatcher: server already started")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("dispatcher: listen %s: %w", s.addr, err)
	}
	s.l = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		l := s.l
		s.mu.Unlock()
		if l == nil {
			return
		}

		conn, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("dispatcher: accept error", "error", err)
			return
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
			}()
			s.d.Serve(conn)
		}()
	}
}

// Stop stops accepting new connections, closes every active one, and waits
// for their tasks (and the accept loop) to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.l == nil {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	l := s.l
	s.l = nil
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	_ = l.Close()
	for _, c := range conns {
		_ = c.Close()
	}

	s.wg.Wait()
	return nil
}

// Addr returns the bound listener address, or nil if not started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.l == nil {
		return nil
	}
	return s.l.Addr()
}

// ConnectionCount returns the number of currently active connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
