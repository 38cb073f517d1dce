package server

import "errors"

var (
	ErrInvalidUpstream = errors.New("server: invalid upstream url")
	ErrMissingHooks    = errors.New("server: hook table is required")
	ErrBadRequest      = errors.New("server: bad request")
)
