package taskgraph

import (
	"errors"
	"fmt"
)

// Common scheduler errors.
var (
	// ErrNotFound indicates an unknown task or dependency identifier.
	ErrNotFound = errors.New("task not found")

	// ErrCycleDetected indicates the dependency graph contains a cycle
	// and no full execution order exists.
	ErrCycleDetected = errors.New("circular dependency detected")

	// ErrNotPending indicates a claim on a task that has already left
	// the Pending state.
	ErrNotPending = errors.New("task is not pending")
)

// NotFoundError wraps ErrNotFound with identifier details.
type NotFoundError struct {
	Kind string // "task" or "dependency"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// CycleError wraps ErrCycleDetected with the identifiers left
// unordered after the topological sort.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among %d tasks", len(e.Remaining))
}

func (e *CycleError) Unwrap() error {
	return ErrCycleDetected
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCycle checks if an error is a cycle detection error.
func IsCycle(err error) bool {
	return errors.Is(err, ErrCycleDetected)
}
