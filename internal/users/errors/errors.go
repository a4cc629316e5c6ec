package errors

import "errors"

var (
	ErrGuestNotFound = errors.New("guest not found")

	ErrEmailTaken = errors.New("email already registered")
)
