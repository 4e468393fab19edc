package urdna

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnknownAlgorithm indicates an unsupported canonicalization algorithm name
var ErrUnknownAlgorithm = errors.New("unknown canonicalization algorithm")

// ErrUnsupportedDigest indicates an unsupported message digest algorithm
var ErrUnsupportedDigest = errors.New("unsupported message digest algorithm")

// ErrAborted is matched by every AbortError
var ErrAborted = errors.New("canonicalization aborted")

// ErrIterationBudgetExceeded is the abort reason when a blank node
// exhausts its deep iteration budget
var ErrIterationBudgetExceeded = errors.New("maximum deep iterations exceeded")

// ErrDeadlineExceeded is the abort reason when the context deadline passes
var ErrDeadlineExceeded = errors.New("deadline exceeded")

// ErrCancelled is the abort reason when the context is cancelled
var ErrCancelled = errors.New("cancelled")

// ErrInternal indicates a violated internal invariant. It is never the
// result of bad input.
var ErrInternal = errors.New("internal consistency failure")

// AbortError is returned when the Governor stops a canonicalization run.
// It matches ErrAborted and its Reason with errors.Is.
type AbortError struct {
	// Reason is one of ErrIterationBudgetExceeded, ErrDeadlineExceeded or ErrCancelled
	Reason error

	// ID is the blank node being expanded when the run stopped, if any
	ID string

	// Iterations is the total number of Hash N-Degree Quads calls made
	Iterations int
}

func (e *AbortError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%v: %v (blank node _:%s after %d deep iterations)", ErrAborted, e.Reason, e.ID, e.Iterations)
	}
	return fmt.Sprintf("%v: %v (after %d deep iterations)", ErrAborted, e.Reason, e.Iterations)
}

// Unwrap exposes both ErrAborted and the reason
func (e *AbortError) Unwrap() []error { return []error{ErrAborted, e.Reason} }
