package server

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/relaxhq/relaxd/internal/functions"
	"github.com/relaxhq/relaxd/internal/protocol"
)

// Routes a request to its handler.
//
// An unknown command is answered with a CommandNotFound envelope. A
// returned error is written by the caller as a textual dump.
func (s *session) dispatch(req *protocol.Request) (protocol.Reply, error) {
	switch req.Command {
	case protocol.CmdReset:
		return s.handleReset()
	case protocol.CmdAddFun:
		return s.handleAddFun(req)
	case protocol.CmdMapDoc:
		return s.handleMapDoc(req)
	case protocol.CmdReduce:
		return s.handleReduce(req)
	case protocol.CmdRereduce:
		return s.handleRereduce(req)
	case protocol.CmdValidate:
		return s.handleValidate(req)
	default:
		err := fmt.Errorf("%w: %q", protocol.ErrCommandNotFound, req.Command)
		return protocol.ReplyWith(protocol.NewErrorEnvelope(err)), nil
	}
}

// Handles a reset command.
//
// Drops every registered function and restarts ordinals at zero.
func (s *session) handleReset() (protocol.Reply, error) {
	s.registry.Reset()
	return protocol.ReplyWith(true), nil
}

// Handles an add_fun command.
//
// Loads the named function and registers it at the next ordinal. A load
// failure is answered with an error envelope and leaves the registry
// untouched.
func (s *session) handleAddFun(req *protocol.Request) (protocol.Reply, error) {
	var name string
	if err := req.Arg(0, &name); err != nil {
		return protocol.Reply{}, err
	}
	name = strings.TrimSpace(name)

	fn, logAware, err := s.catalog.Load(name, s)
	if err != nil {
		slog.Debug("add_fun failed", "name", name, "error", err)
		return protocol.ReplyWith(protocol.NewErrorEnvelope(err)), nil
	}

	ordinal := s.registry.Add(name, fn, logAware)
	slog.Debug("function added", "name", name, "ordinal", ordinal)

	return protocol.ReplyWith(true), nil
}

// Handles a map_doc command.
//
// Runs every registered function against the document in ordinal order.
// The reply holds one list of [key, value] pairs per function. A function
// that fails contributes an empty list and a log event.
func (s *session) handleMapDoc(req *protocol.Request) (protocol.Reply, error) {
	var doc functions.Document
	if err := req.Arg(0, &doc); err != nil {
		return protocol.Reply{}, err
	}

	entries := s.registry.Ordered()
	results := make([][]functions.Emission, 0, len(entries))

	for _, e := range entries {
		rows, err := functions.CallMap(e.Fn, doc)
		if err != nil {
			s.logFailure(e.Name, err)
			rows = []functions.Emission{}
		}
		results = append(results, rows)
	}

	return protocol.ReplyWith(results), nil
}

// Handles a reduce command.
//
// Rows arrive as [[key, docId], value] and are split into a keys column
// and a values column before being handed to each reducer.
func (s *session) handleReduce(req *protocol.Request) (protocol.Reply, error) {
	var names []string
	if err := req.Arg(0, &names); err != nil {
		return protocol.Reply{}, err
	}

	var rows []any
	if err := req.Arg(1, &rows); err != nil {
		return protocol.Reply{}, err
	}

	fns := s.loadAll(names)

	keys, values, err := splitRows(rows)
	if err != nil {
		return protocol.Reply{}, err
	}

	return protocol.ReplyWith([]any{true, s.reduceAll(names, fns, keys, values, false)}), nil
}

// Handles a rereduce command.
//
// Same as reduce, except only previously reduced values are combined and
// reducers receive no keys.
func (s *session) handleRereduce(req *protocol.Request) (protocol.Reply, error) {
	var names []string
	if err := req.Arg(0, &names); err != nil {
		return protocol.Reply{}, err
	}

	var values []any
	if err := req.Arg(1, &values); err != nil {
		return protocol.Reply{}, err
	}

	fns := s.loadAll(names)

	return protocol.ReplyWith([]any{true, s.reduceAll(names, fns, nil, values, true)}), nil
}

// Handles a validate command.
//
// A load failure answers false. A failure inside the function answers the
// failure text, which the host reads as a rejection reason. A nil result
// produces no reply.
func (s *session) handleValidate(req *protocol.Request) (protocol.Reply, error) {
	var name string
	var newDoc, oldDoc, userCtx functions.Document
	for i, dst := range []any{&name, &newDoc, &oldDoc, &userCtx} {
		if err := req.Arg(i, dst); err != nil {
			return protocol.Reply{}, err
		}
	}

	fn, _, err := s.catalog.Load(name, s)
	if err != nil {
		s.logFailure(name, err)
		return protocol.ReplyWith(false), nil
	}

	result, err := functions.CallValidate(fn, newDoc, oldDoc, userCtx)
	if err != nil {
		s.logFailure(name, err)
		return protocol.ReplyWith(err.Error()), nil
	}

	if result == nil {
		return protocol.NoReply(), nil
	}
	return protocol.ReplyWith(result), nil
}

// Loads each named function. Failed slots are nil and have been logged.
func (s *session) loadAll(names []string) []any {
	fns := make([]any, len(names))
	for i, name := range names {
		fn, _, err := s.catalog.Load(name, s)
		if err != nil {
			s.logFailure(name, err)
			continue
		}
		fns[i] = fn
	}
	return fns
}

// Runs each loaded reducer over keys and values. Slots whose function
// failed to load or to run are nil.
func (s *session) reduceAll(names []string, fns []any, keys, values []any, rereduce bool) []any {
	results := make([]any, len(fns))
	for i, fn := range fns {
		if fn == nil {
			continue
		}
		result, err := functions.CallReduce(fn, keys, values, rereduce)
		if err != nil {
			s.logFailure(names[i], err)
			continue
		}
		results[i] = result
	}
	return results
}

// Reports a user function failure on the stream and in the process log.
func (s *session) logFailure(name string, err error) {
	slog.Debug("function failed", "name", name, "error", err)
	s.Log(fmt.Sprintf("%s: %v", name, err))
}

// Splits [[key, docId], value] rows into a keys column and a values
// column, preserving row order.
func splitRows(rows []any) (keys, values []any, err error) {
	keys = make([]any, 0, len(rows))
	values = make([]any, 0, len(rows))

	for i, row := range rows {
		pair, ok := row.([]any)
		if !ok || len(pair) != 2 {
			return nil, nil, fmt.Errorf("%w: reduce row %d is not a [[key, docId], value] pair", protocol.ErrArgument, i)
		}
		keyID, ok := pair[0].([]any)
		if !ok || len(keyID) == 0 {
			return nil, nil, fmt.Errorf("%w: reduce row %d has no [key, docId] pair", protocol.ErrArgument, i)
		}
		keys = append(keys, keyID[0])
		values = append(values, pair[1])
	}

	return keys, values, nil
}
