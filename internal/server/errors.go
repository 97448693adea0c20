package server

import "errors"

var (
	ErrServer   = errors.New("server error")
	ErrInternal = errors.New("internal error")
)
