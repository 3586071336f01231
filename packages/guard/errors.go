package guard

import (
	"errors"
	"fmt"
)

var (
	// ErrAssertion matches every *AssertionError.
	ErrAssertion = errors.New("assertion failed")
	// ErrIO matches every *IOError.
	ErrIO = errors.New("file not readable")
	// ErrUsage matches every *UsageError.
	ErrUsage = errors.New("invalid assertion")
	// ErrNotRegular is wrapped by an IOError when the path is a directory,
	// device or other non-regular file.
	ErrNotRegular = errors.New("not a regular file")
)

// AssertionError reports that a file was read but did not satisfy the check.
type AssertionError struct {
	Path     string
	Expected string
	Message  string
}

func (e *AssertionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("%s: expected content to contain %q", e.Path, e.Expected)
}

func (e *AssertionError) Is(target error) bool {
	return target == ErrAssertion
}

// IOError reports that the file under test could not be read.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// UsageError reports an assertion that is malformed and was never evaluated.
type UsageError struct {
	Field  string
	Value  string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

// Verdict is the outcome of evaluating one assertion.
type Verdict int

const (
	Pass Verdict = iota
	Fail
	Error
	Skip
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Error:
		return "error"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// Classify maps the error returned by a check to its verdict. Anything that
// is not an assertion failure counts as Error.
func Classify(err error) Verdict {
	switch {
	case err == nil:
		return Pass
	case errors.Is(err, ErrAssertion):
		return Fail
	default:
		return Error
	}
}
