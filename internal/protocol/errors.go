package protocol

import "errors"

var (
	ErrDecode           = errors.New("decode error")
	ErrArgument         = errors.New("argument error")
	ErrCommandNotFound  = errors.New("command not found")
	ErrFunctionNotFound = errors.New("function not found")
)

// Kind names used in error envelopes and textual dumps.
const (
	KindDecode           = "DecodeError"
	KindArgument         = "ArgumentError"
	KindCommandNotFound  = "CommandNotFound"
	KindFunctionNotFound = "FunctionNotFound"
	KindError            = "Error"
)

// Returns the kind name for err.
//
// Errors wrapping one of the package sentinels map to the matching kind;
// anything else is reported as [KindError].
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrFunctionNotFound):
		return KindFunctionNotFound
	case errors.Is(err, ErrCommandNotFound):
		return KindCommandNotFound
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrArgument):
		return KindArgument
	default:
		return KindError
	}
}
