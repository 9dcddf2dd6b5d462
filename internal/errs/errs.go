// Package errs defines the error kinds shared across the memory system,
// per the propagation policy: callers match on sentinel values rather
// than type names or panics.
package errs

import "errors"

var (
	// ErrInvalidInput marks a caller-side validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a missing id or file.
	ErrNotFound = errors.New("not found")
	// ErrConflictingEdit marks a lost per-id lock race; the CLI maps it
	// to exit code 3. No function in this module returns it, and no
	// caller retries on it.
	ErrConflictingEdit = errors.New("conflicting edit")
	// ErrCircuitOpen marks a breaker-rejected call.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrDependencyFailed marks an unreachable sidecar dependency.
	ErrDependencyFailed = errors.New("dependency failed")
	// ErrCorruption marks unparsable frontmatter; the file is quarantined.
	ErrCorruption = errors.New("corruption")
)

// Is reports whether err wraps target, delegating to errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
