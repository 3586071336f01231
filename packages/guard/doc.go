// Package guard implements the source-assertion harness.
//
// A SourceAssertion names a file relative to a ProjectRoot and a snippet the
// file must contain. Evaluating it has three outcomes:
//   - nil: the snippet occurs somewhere in the file
//   - *AssertionError: the file was read but the snippet is absent
//   - *IOError: the file is missing, unreadable, or not a regular file
//
// Inputs that could never be evaluated (a relative root, an empty path, a
// path escaping the root, lexically or through a symlink) are reported as
// *UsageError before any read.
// Callers classify errors with errors.Is against ErrAssertion, ErrIO and
// ErrUsage, or with Classify.
package guard
