// Package assertions evaluates suite cases against a project root.
//
// Supported checks:
//   - contains: the file holds a literal snippet (the guard harness check)
//   - notContains: the file does not hold a forbidden snippet
//   - matches: the file matches an RE2 pattern
//   - jsonPath: the file is JSON and the gjson path exists, optionally with
//     an expected value
//   - schema: the file is JSON valid against a JSON Schema under the root
//
// Every check reports through the guard error types, so a missing file is
// always an error verdict and a failed check is always a fail verdict.
package assertions
