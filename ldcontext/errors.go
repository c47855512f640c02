package ldcontext

import (
	"errors"
	"fmt"
)

// ErrOutsideRoot is returned for directories outside the documentation root.
var ErrOutsideRoot = errors.New("directory is outside the documentation root")

// ParseError reports a context file that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse context %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
