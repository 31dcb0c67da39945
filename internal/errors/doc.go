// Package apperrors defines the typed errors and exit codes shared by the
// range-sum task, its configuration layer, and the CLI.
//
// All error types wrap their cause where they have one, so errors.Is and
// errors.As see through them.
package apperrors
