// Package guardtest adapts the guard harness to go test.
//
// Typical use in a smoke test:
//
//	func TestPetDetailGuard(t *testing.T) {
//		root := guardtest.Root(t)
//		guardtest.RequireContains(t, root, "app/index.tsx", "selectedPet && (",
//			"pet detail must only render when a pet is selected")
//	}
package guardtest

import (
	"errors"
	"os"
	"unicode/utf8"

	"github.com/abdul-hamid-achik/srcguard/packages/guard"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// Root discovers the project root from the test's working directory.
func Root(t TB, markers ...string) guard.ProjectRoot {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("guardtest: getwd: %v", err)
		return guard.ProjectRoot{}
	}
	r, err := guard.FindProjectRoot(wd, markers...)
	if err != nil {
		t.Fatalf("guardtest: %v", err)
	}
	return r
}

// AssertContains records a test failure when the file does not contain
// substr, and reports whether the check passed.
func AssertContains(t TB, root guard.ProjectRoot, rel, substr, msg string) bool {
	t.Helper()
	err := root.Check(guard.SourceAssertion{RelativePath: rel, ExpectedSubstring: substr, FailureMessage: msg})
	if err == nil {
		return true
	}
	t.Errorf("%s", describe(err))
	return false
}

// RequireContains is AssertContains that stops the test on failure.
func RequireContains(t TB, root guard.ProjectRoot, rel, substr, msg string) {
	t.Helper()
	err := root.Check(guard.SourceAssertion{RelativePath: rel, ExpectedSubstring: substr, FailureMessage: msg})
	if err != nil {
		t.Fatalf("%s", describe(err))
	}
}

func describe(err error) string {
	var ioErr *guard.IOError
	var aErr *guard.AssertionError
	switch {
	case errors.As(err, &aErr):
		if aErr.Message != "" {
			return "source assertion failed: " + aErr.Path + ": " + aErr.Message + " (missing " + quote(aErr.Expected) + ")"
		}
		return "source assertion failed: " + aErr.Error()
	case errors.As(err, &ioErr):
		return "cannot read source file: " + ioErr.Error()
	default:
		return "invalid source assertion: " + err.Error()
	}
}

// quote shortens s to its first 60 runes.
func quote(s string) string {
	const max = 60
	if utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max]) + "..."
	}
	return "\"" + s + "\""
}
