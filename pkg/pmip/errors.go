package pmip

import (
	"errors"
	"fmt"
)

var (
	ErrMissingHeader      = errors.New("missing header line")
	ErrMalformedHeader    = errors.New("malformed header")
	ErrInvalidVersion     = errors.New("invalid version number")
	ErrUnsupportedVersion = errors.New("a newer reader is required for this file")
	ErrInvalidAddress     = errors.New("invalid hex address")
)

// HeaderError reports a side file that could not be registered.
type HeaderError struct {
	Path string
	Err  error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("reading header of %s: %v", e.Path, e.Err)
}

func (e *HeaderError) Unwrap() error {
	return e.Err
}

// LineError reports a fatal failure while streaming the body of a side file.
// Line is 1-based and counts the header.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
