// Package logging provides the structured logging interface used across the
// pool, the range-sum task, and the CLI. It wraps zerolog so components log
// through one small interface and tests can swap in a buffer or a no-op logger.
package logging
