package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/relaxhq/relaxd/internal/functions"
	"github.com/relaxhq/relaxd/internal/protocol"
)

// Per-connection protocol state.
//
// A session owns its registry; it is driven by a single goroutine and is
// not safe for concurrent use.
type session struct {
	reader   *bufio.Reader       // Buffered input, read one line at a time.
	writer   *bufio.Writer       // Buffered output, flushed after every line.
	catalog  *functions.Catalog  // Shared function namespace.
	registry *functions.Registry // Map functions added on this connection.
	werr     error               // First write error; ends the session.
}

// Creates a session reading requests from and writing replies to rw.
func newSession(rw io.ReadWriter, catalog *functions.Catalog) *session {
	return &session{
		reader:   bufio.NewReader(rw),
		writer:   bufio.NewWriter(rw),
		catalog:  catalog,
		registry: functions.NewRegistry(),
	}
}

// Processes lines until the input ends.
//
// Returns nil when the peer closes the stream cleanly, or the read or write
// error that ended the session.
func (s *session) serve() error {
	for {
		line, err := s.reader.ReadBytes('\n')
		if len(line) > 0 {
			s.process(line)
			if s.werr != nil {
				return s.werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Handles one line and writes whatever it produces.
//
// Nothing escapes: decode failures and any other failure outside the
// standardized error path are written as a textual dump.
func (s *session) process(line []byte) {
	defer s.flush()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("request panicked", "panic", r)
			s.writeRaw(protocol.Describe(fmt.Errorf("%w: %v", ErrInternal, r)))
		}
	}()

	req, err := protocol.Decode(line)
	if err != nil {
		slog.Debug("decode failed", "error", err)
		s.writeRaw(protocol.Describe(err))
		return
	}

	slog.Debug("command received", "command", req.Command, "args", len(req.Args))

	reply, err := s.dispatch(req)
	if err != nil {
		s.writeRaw(protocol.Describe(err))
		return
	}

	if v, ok := reply.Value(); ok {
		s.write(v)
	}
}

// Writes a log event to the stream. Implements [functions.Reporter].
func (s *session) Log(msg string) {
	s.write(protocol.LogEvent{Log: msg})
}

// Encodes v as one line.
func (s *session) write(v any) {
	data, err := protocol.Encode(v)
	if err != nil {
		slog.Error("encode reply failed", "error", err)
		data = protocol.Describe(err)
	}
	s.writeRaw(data)
}

// Writes a preformatted line. After the first failure, writes are dropped.
func (s *session) writeRaw(data []byte) {
	if s.werr != nil {
		return
	}
	if _, err := s.writer.Write(data); err != nil {
		s.werr = err
	}
}

// Flushes buffered output.
func (s *session) flush() {
	if s.werr != nil {
		return
	}
	if err := s.writer.Flush(); err != nil {
		s.werr = err
	}
}
