// Package errortypes defines error interfaces shared across the analyzer.
package errortypes

import "fmt"

// ErrLines extends the error interface to add the source lines contributing
// evidence to the error.
type ErrLines interface {
	error
	Linenos() []int
}

// NewErrLinesf creates an error conforming to the ErrLines interface.
func NewErrLinesf(lines []int, format string, args ...interface{}) error {
	return &errLines{
		error: fmt.Errorf(format, args...),
		lines: lines,
	}
}

// IsErrLines identifies whether or not the root cause of the provided error
// carries line information.  Wrapped errors are unwrapped via the Cause()
// function.
func IsErrLines(err error) bool {
	return ToErrLines(err) != nil
}

// ToErrLines converts the input error to an ErrLines if possible, or nil if
// not.  If IsErrLines returns true, this will not return nil.
func ToErrLines(err error) ErrLines {
	if err == nil {
		return nil
	}
	err = rootCause(err)
	if out, ok := err.(ErrLines); ok {
		return out
	}
	return nil
}

func rootCause(err error) error {
	type causer interface {
		Cause() error
	}

	for {
		if e, ok := err.(causer); ok {
			err = e.Cause()
		} else {
			return err
		}
	}
}

var _ ErrLines = &errLines{}

type errLines struct {
	error
	lines []int
}

func (e *errLines) Linenos() []int {
	return e.lines
}
