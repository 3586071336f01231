package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/srcguard/packages/assertions"
	"github.com/abdul-hamid-achik/srcguard/packages/core/runner"
	"github.com/abdul-hamid-achik/srcguard/packages/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *runner.RunResult {
	missing := &guard.IOError{Path: "/proj/src/gone.go", Op: "open", Err: errMissing}
	return &runner.RunResult{
		File:  "guards.guard.yaml",
		Suite: "guards",
		Root:  "/proj",
		Results: []*runner.CaseResult{
			{
				Name:    "handler wired",
				File:    "src/app.go",
				Kind:    "contains",
				Line:    3,
				Verdict: guard.Pass,
				Passed:  true,
			},
			{
				Name:    "logger present",
				File:    "src/main.go",
				Kind:    "contains",
				Line:    6,
				Verdict: guard.Fail,
				Message: "logger setup removed",
				Assertion: &assertions.Result{
					Verdict:  guard.Fail,
					Expected: "zap.NewProduction",
					Subject:  "src/main.go",
					Operator: "contains",
				},
			},
			{
				Name:    "gone file",
				File:    "src/gone.go",
				Kind:    "contains",
				Line:    9,
				Verdict: guard.Error,
				Message: missing.Error(),
				Error:   missing,
			},
			{
				Name:       "later",
				File:       "src/later.go",
				Kind:       "contains",
				Verdict:    guard.Skip,
				Skipped:    true,
				SkipReason: "not yet",
			},
		},
		Duration: 12 * time.Millisecond,
		Passed:   1,
		Failed:   1,
		Errored:  1,
		Skipped:  1,
	}
}

var errMissing = &strError{"no such file or directory"}

type strError struct{ s string }

func (e *strError) Error() string { return e.s }

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	f.FormatHeader("1.0.0")
	f.FormatResult(sampleResult())

	out := buf.String()
	assert.Contains(t, out, "srcguard 1.0.0")
	assert.Contains(t, out, "Running: guards.guard.yaml")
	assert.Contains(t, out, "✓ handler wired")
	assert.Contains(t, out, "✗ logger present")
	assert.Contains(t, out, `Expected: "zap.NewProduction"`)
	assert.Contains(t, out, "logger setup removed")
	assert.Contains(t, out, "! gone file")
	assert.Contains(t, out, "- later (not yet)")
	assert.Contains(t, out, "1 passed, 1 failed, 1 unreadable, 1 skipped, 4 total")
}

func TestConsoleFormatter_HidesFilteredUnlessVerbose(t *testing.T) {
	result := &runner.RunResult{
		File: "a.guard.yaml",
		Results: []*runner.CaseResult{
			{Name: "hidden", Verdict: guard.Skip, Skipped: true, SkipReason: runner.SkipFiltered},
		},
		Skipped: 1,
	}

	var quiet bytes.Buffer
	NewConsoleFormatter(WithWriter(&quiet), WithNoColor(true)).FormatResult(result)
	assert.NotContains(t, quiet.String(), "hidden")

	var verbose bytes.Buffer
	NewConsoleFormatter(WithWriter(&verbose), WithNoColor(true), WithVerbose(true)).FormatResult(result)
	assert.Contains(t, verbose.String(), "- hidden")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	f.FormatResult(sampleResult())
	f.FormatError(assert.AnError)
	require.NoError(t, f.Flush(20*time.Millisecond))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, JSONSummary{Total: 4, Passed: 1, Failed: 1, Errored: 1, Skipped: 1}, out.Summary)
	require.Len(t, out.Tests, 4)
	assert.Equal(t, "pass", out.Tests[0].Verdict)
	assert.Equal(t, "fail", out.Tests[1].Verdict)
	require.NotNil(t, out.Tests[1].Assertion)
	assert.Equal(t, "zap.NewProduction", out.Tests[1].Assertion.Expected)
	assert.Equal(t, "error", out.Tests[2].Verdict)
	assert.Contains(t, out.Tests[2].Error, "no such file")
	assert.Equal(t, "not yet", out.Tests[3].SkipReason)
	assert.Equal(t, []string{assert.AnError.Error()}, out.Errors)
	assert.Equal(t, float64(20), out.Duration)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))

	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "<?xml"))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))

	assert.Equal(t, "srcguard", suites.Name)
	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.Equal(t, 1, suites.Skipped)

	require.Len(t, suites.TestSuites, 1)
	cases := suites.TestSuites[0].TestCases
	require.Len(t, cases, 4)

	assert.Nil(t, cases[0].Failure)
	assert.Nil(t, cases[0].Error)

	require.NotNil(t, cases[1].Failure)
	assert.Equal(t, "AssertionError", cases[1].Failure.Type)
	assert.Nil(t, cases[1].Error)

	require.NotNil(t, cases[2].Error)
	assert.Equal(t, "IOError", cases[2].Error.Type)
	assert.Nil(t, cases[2].Failure)

	require.NotNil(t, cases[3].Skipped)
	assert.Equal(t, "not yet", cases[3].Skipped.Message)

	assert.Equal(t, []JUnitProperty{{Name: "root", Value: "/proj"}}, suites.TestSuites[0].Properties)
}

func TestJUnitFormatter_LoadError(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(JUnitWithWriter(&buf))

	f.FormatError(errors.New("broken.guard.yaml: line 2: no check given"))
	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(time.Second))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))

	assert.Equal(t, 5, suites.Tests)
	assert.Equal(t, 2, suites.Errors)
	require.Len(t, suites.TestSuites, 2)

	load := suites.TestSuites[0]
	require.Len(t, load.TestCases, 1)
	require.NotNil(t, load.TestCases[0].Error)
	assert.Equal(t, "ParseError", load.TestCases[0].Error.Type)
	assert.Contains(t, load.TestCases[0].Error.Message, "broken.guard.yaml")
}

func TestErrorType(t *testing.T) {
	assert.Equal(t, "IOError", errorType(&guard.IOError{Path: "x", Op: "open", Err: errMissing}))
	assert.Equal(t, "UsageError", errorType(&guard.UsageError{Field: "root", Reason: "must be absolute"}))
	assert.Equal(t, "Error", errorType(assert.AnError))
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTAPFormatter(TAPWithWriter(&buf))

	f.FormatResult(sampleResult())
	require.NoError(t, f.Flush(5*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "TAP version 13\n1..4\n")
	assert.Contains(t, out, "ok 1 - handler wired\n")
	assert.Contains(t, out, "not ok 2 - logger present\n")
	assert.Contains(t, out, "  severity: fail\n")
	assert.Contains(t, out, "not ok 3 - gone file\n")
	assert.Contains(t, out, "  severity: error\n")
	assert.Contains(t, out, "ok 4 - later # SKIP not yet\n")
	assert.Contains(t, out, "# time: 5ms\n")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain text", escapeYAML("plain text"))
	assert.Equal(t, `"key: value"`, escapeYAML("key: value"))
	assert.Equal(t, `"say \"hi\": now"`, escapeYAML(`say "hi": now`))
	assert.Equal(t, `"a\nb"`, escapeYAML("a\nb"))
}
