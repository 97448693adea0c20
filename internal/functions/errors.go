package functions

import "errors"

var (
	ErrSignature = errors.New("unsupported function signature")
	ErrPanic     = errors.New("function panicked")
	ErrPlugin    = errors.New("plugin error")
	ErrResult    = errors.New("result cannot be encoded")
)
