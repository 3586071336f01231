// Package cmd implements the srcguard CLI commands using Cobra.
//
// Available commands:
//   - run: Run guard suites, once, repeatedly or in watch mode
//   - check: Check one file for one substring
//   - validate: Check suite syntax without running
//   - list: Display all checks defined in suites
//   - init: Bootstrap a project and write a starter suite
//   - history: Show recorded runs
//   - version: Show srcguard version information
//
// Commands return an *ExitError to choose the process exit status; Execute
// maps it to the code returned to main.
package cmd
