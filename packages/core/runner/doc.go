// Package runner executes srcguard suites.
//
// It provides functionality for:
//   - Running individual suite files
//   - Resolving each suite's project root
//   - Filtering cases by name pattern, tags, only and skip markers
//   - Parallel evaluation with configurable concurrency
//   - Stopping on the first failure (bail)
//
// Results keep the order of the cases in the suite regardless of the
// execution mode, and one failing case never prevents the others from
// being evaluated.
package runner
