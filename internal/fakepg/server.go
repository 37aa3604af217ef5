// Package fakepg is a minimal stand-in PostgreSQL backend used only by
// litepg's own tests. It speaks just enough of the wire protocol — startup,
// cleartext/MD5 auth, SSL refusal, simple query, and extended query — to
// drive litepg through every end-to-end flow without a real `postgres`
// binary, pattern-matching a handful of statement shapes instead of
// running a full SQL engine.
package fakepg

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
)

// Config configures the fixture server's listen address and the
// credentials it will accept.
type Config struct {
	Port     int
	User     string
	Password string
	AuthMD5  bool // false = cleartext password auth
}

// ServerVersion is the server_version startup parameter the fixture
// reports, in the same "MAJOR.MINOR" shape a real server uses.
const ServerVersion = "16.3"

// Server accepts TCP connections and spawns a goroutine per client, with
// a graceful accept-loop shutdown.
type Server struct {
	cfg      *Config
	store    *store
	mu       sync.Mutex // protects listener
	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
}

// New creates a fixture server with the given configuration.
func New(cfg *Config) *Server {
	return &Server{
		cfg:   cfg,
		store: newStore(),
		quit:  make(chan struct{}),
	}
}

// ListenAndServe starts accepting connections. It blocks until Shutdown
// is called or an unrecoverable error occurs.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				log.Printf("fakepg: accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c := newConnection(conn, s.cfg, s.store)
			c.Handle()
		}()
	}
}

// Addr returns the listener's network address, or nil if not yet listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		return ln.Addr()
	}
	return nil
}

// Shutdown stops accepting new connections and waits for existing ones
// to finish, respecting the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.quit)
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
