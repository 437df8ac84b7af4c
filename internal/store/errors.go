package store

import "errors"

var (
	ErrUnreachable = errors.New("store unreachable")
	ErrNotInteger  = errors.New("stored value is not an integer")
)
