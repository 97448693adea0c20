package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Names a protocol command.
type Command string

const (
	CmdReset    Command = "reset"
	CmdAddFun   Command = "add_fun"
	CmdMapDoc   Command = "map_doc"
	CmdReduce   Command = "reduce"
	CmdRereduce Command = "rereduce"
	CmdValidate Command = "validate"
)

// Returns all commands understood by the server, in documentation order.
func Commands() []Command {
	return []Command{CmdReset, CmdAddFun, CmdMapDoc, CmdReduce, CmdRereduce, CmdValidate}
}

// One decoded inbound line.
type Request struct {
	Command Command           // Command verb, the first array element.
	Args    []json.RawMessage // Remaining array elements, undecoded.
}

// Parses a single line into a [Request].
//
// The line must hold a JSON array whose first element is a string. Leading
// and trailing whitespace, including the line terminator, is ignored.
func Decode(line []byte) (*Request, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty line", ErrDecode)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty command array", ErrDecode)
	}

	var cmd string
	if err := json.Unmarshal(raw[0], &cmd); err != nil {
		return nil, fmt.Errorf("%w: command must be a string, got %s", ErrDecode, raw[0])
	}

	return &Request{Command: Command(cmd), Args: raw[1:]}, nil
}

// Decodes positional argument i into dst.
//
// Numbers decoded into untyped values are kept as [json.Number] so that
// documents reach user functions with their precision intact.
func (r *Request) Arg(i int, dst any) error {
	if i >= len(r.Args) {
		return fmt.Errorf("%w: %s expects at least %d arguments, got %d", ErrArgument, r.Command, i+1, len(r.Args))
	}
	dec := json.NewDecoder(bytes.NewReader(r.Args[i]))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s argument %d: %v", ErrArgument, r.Command, i, err)
	}
	return nil
}

// Outcome of a handler: either nothing is written, or a value is.
type Reply struct {
	value any
	ok    bool
}

// Returns a reply that writes nothing to the stream.
func NoReply() Reply {
	return Reply{}
}

// Returns a reply that writes v to the stream, even when v is false, zero
// or empty.
func ReplyWith(v any) Reply {
	return Reply{value: v, ok: true}
}

// Returns the reply value and whether anything should be written.
func (r Reply) Value() (any, bool) {
	return r.value, r.ok
}

// Standardized error object understood by the host.
type ErrorEnvelope struct {
	Error  string `json:"error"`  // Kind name, e.g. "FunctionNotFound".
	Reason string `json:"reason"` // Human-readable message.
}

// Builds the error envelope for err.
func NewErrorEnvelope(err error) ErrorEnvelope {
	return ErrorEnvelope{Error: Kind(err), Reason: err.Error()}
}

// Diagnostic message multiplexed onto the reply stream.
type LogEvent struct {
	Log string `json:"log"`
}
