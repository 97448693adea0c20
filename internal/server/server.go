package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/relaxhq/relaxd/internal/functions"
	"github.com/relaxhq/relaxd/internal/paths"
)

// Default listen address.
const DefaultAddress = "127.0.0.1:5936"

// Holds server configuration.
type Config struct {
	Address string             // TCP listen address as host:port. Empty uses [DefaultAddress].
	Catalog *functions.Catalog // Function namespace shared by all connections. Required.
	PIDFile string             // Where to write the process ID on start. Empty skips it.
}

// Listens on a TCP address and runs one session per connection.
type Server struct {
	address   string                // Configured listen address.
	catalog   *functions.Catalog    // Function namespace.
	pidFile   string                // PID file path, may be empty.
	listener  net.Listener          // Listener for incoming connections.
	startedAt time.Time             // Timestamp when the server started.
	sessions  int                   // Total number of connections accepted.
	conns     map[net.Conn]struct{} // Open connections, closed on stop.
	err       error                 // Accept failure that stopped the server.
	done      chan struct{}         // Closed when the server stops.
	stopOnce  sync.Once             // Guards shutdown.
	wg        sync.WaitGroup        // Tracks session goroutines.
	mu        sync.Mutex            // Protects sessions, conns and err.
}

// Creates a new server instance.
//
// The address is validated but not bound until [Server.Start] is called.
func New(cfg Config) (*Server, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("%w: no function catalog", ErrServer)
	}

	address := cfg.Address
	if address == "" {
		address = DefaultAddress
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		return nil, fmt.Errorf("%w: invalid address %q: %v", ErrServer, address, err)
	}

	return &Server{
		address: address,
		catalog: cfg.Catalog,
		pidFile: cfg.PIDFile,
		conns:   make(map[net.Conn]struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Binds the listen address and begins accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("%w: failed to listen on %s: %v", ErrServer, s.address, err)
	}

	s.listener = listener
	s.startedAt = time.Now()

	if s.pidFile != "" {
		if err := writePID(s.pidFile); err != nil {
			slog.Warn("failed to write PID file", "path", s.pidFile, "error", err)
		}
	}

	slog.Info("server listening", "address", s.Addr())

	go s.accept()
	return nil
}

// Shuts down the server.
//
// Closes the listener and every open connection, then waits for their
// sessions to return. Safe to call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)

		if s.listener != nil {
			s.listener.Close()
		}

		s.mu.Lock()
		for conn := range s.conns {
			conn.Close()
		}
		s.mu.Unlock()

		s.wg.Wait()

		if s.pidFile != "" {
			os.Remove(s.pidFile)
		}

		s.mu.Lock()
		sessions := s.sessions
		s.mu.Unlock()

		slog.Info("server stopped",
			"uptime", time.Since(s.startedAt).Truncate(time.Second).String(),
			"sessions", sessions,
		)
	})
	return nil
}

// Blocks until the server stops.
//
// Returns the accept error that stopped the server, or nil if it was
// stopped with [Server.Stop].
func (s *Server) Wait() error {
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Returns the bound address, or the configured one before [Server.Start].
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.address
}

// Accepts connections until the server shuts down.
//
// An accept failure that is not caused by shutdown is fatal: it is recorded
// for [Server.Wait] and the server stops.
func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}

			slog.Error("accept error", "error", err)

			s.mu.Lock()
			s.err = fmt.Errorf("%w: accept: %v", ErrServer, err)
			s.mu.Unlock()

			go s.Stop()
			return
		}

		if !s.track(conn) {
			conn.Close()
			return
		}

		go s.handle(conn)
	}
}

// Records conn as open. Returns false if the server is stopping.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return false
	default:
	}

	s.conns[conn] = struct{}{}
	s.sessions++
	s.wg.Add(1)
	return true
}

// Runs a session on conn until the peer disconnects.
func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	remote := conn.RemoteAddr().String()
	slog.Debug("connection opened", "remote", remote)

	err := newSession(conn, s.catalog).serve()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Warn("connection failed", "remote", remote, "error", err)
		return
	}

	slog.Debug("connection closed", "remote", remote)
}

// Writes the process ID to path so tooling can find and signal the daemon.
func writePID(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getpid())), paths.DefaultFileMode)
}
