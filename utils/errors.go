package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = errors.New("validation failed")
	// ErrNoData is returned by generators that select no topology or emit nothing.
	ErrNoData = errors.New("no data suitable for generation")
	// ErrMatrixShared is returned for structural changes to a shared matrix.
	ErrMatrixShared = errors.New("matrix is shared")
	// ErrUnknownElemType is returned for element type names with no definition.
	ErrUnknownElemType = errors.New("unknown element type")
	// ErrOctreeDepth is returned when an octree is too deep for path ids.
	ErrOctreeDepth = errors.New("octree depth exceeds 16")
	// ErrExchangeUsed is returned when a process shares more than once.
	ErrExchangeUsed = errors.New("process already shared its object")
)

// IndexRangeError reports a topology entry that is not a valid row index.
//
// The cause can be accessed via errors.Unwrap and is always ErrValidation.
type IndexRangeError struct {
	Topology string
	Elem     int
	Index    int
	Limit    int
}

func (e *IndexRangeError) Error() string {
	return fmt.Sprintf("topology %q element %d: index %d outside [0,%d)",
		e.Topology, e.Elem, e.Index, e.Limit)
}

func (e *IndexRangeError) Unwrap() error { return ErrValidation }

// LengthMismatchError reports a table whose size disagrees with what owns it.
type LengthMismatchError struct {
	Name     string
	What     string
	Expected int
	Actual   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s %q: expected %d, got %d", e.What, e.Name, e.Expected, e.Actual)
}

func (e *LengthMismatchError) Unwrap() error { return ErrValidation }

// WorkerError carries the failure of one process of a parallel run.
type WorkerError struct {
	Index int
	cause error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("process %d: %v", e.Index, e.cause)
}

func (e *WorkerError) Unwrap() error { return e.cause }
