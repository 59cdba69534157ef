package canvas

import "errors"

var (
	// ErrInvalidArgument is returned when an operation is called with
	// missing or malformed arguments. No request is sent.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnexpectedResponse is returned when Canvas answers with a shape
	// the operation cannot use.
	ErrUnexpectedResponse = errors.New("unexpected Canvas response")
)
