package service

import "errors"

// ErrInvalid marks a request the caller must fix; the message is safe to
// show to users.
var ErrInvalid = errors.New("invalid request")

type invalidError struct {
	msg string
}

func (e *invalidError) Error() string { return e.msg }
func (e *invalidError) Is(target error) bool { return target == ErrInvalid }

func invalid(msg string) error {
	return &invalidError{msg: msg}
}
