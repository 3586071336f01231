// Package output renders suite results for people and for CI.
//
// Formats:
//   - console: colored, one line per case
//   - json: one document with a summary and every case
//   - junit: XML for CI test dashboards
//   - tap: Test Anything Protocol, version 13
//
// Every formatter implements FormatHeader, FormatResult and FormatError. The
// accumulating formats also implement Flush. A failed check and an unreadable
// file are always reported differently.
package output
