package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCorrespondences is returned when fewer than two
	// correspondences are available to solve a pairwise transform.
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")

	// ErrAmbiguousAxisMapping is returned when no choice of correspondence
	// pair yields a complete, bijective axis mapping.
	ErrAmbiguousAxisMapping = errors.New("ambiguous axis mapping")

	// ErrDisconnectedSensor is returned when a scanner has no chain of
	// overlapping scanners leading to the reference.
	ErrDisconnectedSensor = errors.New("disconnected sensor")

	// ErrMalformedInput is returned by the report parsers.
	ErrMalformedInput = errors.New("malformed input")
)

// DisconnectedSensorError identifies the scanner that cannot reach the reference.
//
// It matches ErrDisconnectedSensor with errors.Is.
type DisconnectedSensorError struct {
	Scanner   int
	Reference int
	Component []int // scanners reachable from Scanner, sorted
}

func (e *DisconnectedSensorError) Error() string {
	return fmt.Sprintf("disconnected sensor: scanner %d has no path to reference %d (component %v)",
		e.Scanner, e.Reference, e.Component)
}

func (e *DisconnectedSensorError) Is(target error) bool { return target == ErrDisconnectedSensor }

// MalformedInputError points at the offending line of a scanner report.
//
// It matches ErrMalformedInput with errors.Is; the parse cause is available via errors.Unwrap.
type MalformedInputError struct {
	Line  int // 1-based; 0 when the input has no line structure
	Text  string
	cause error
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d (%q): %v", e.Line, e.Text, e.cause)
	}
	return fmt.Sprintf("malformed input: %v", e.cause)
}

func (e *MalformedInputError) Unwrap() error { return e.cause }

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// PairError wraps a failure to relate two specific scanners
type PairError struct {
	From, To int
	Err      error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("scanners %d-%d: %v", e.From, e.To, e.Err)
}

func (e *PairError) Unwrap() error { return e.Err }
