package lightup

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityAbsent is returned when a shape does not exist in the
	// running host version.
	ErrCapabilityAbsent = errors.New("capability absent in host version")

	// ErrUnsupportedInHostVersion is returned when a property of a wrapped
	// value cannot be read on the running host version.
	ErrUnsupportedInHostVersion = errors.New("unsupported in host version")

	// ErrInvalidShapeCast is returned when a host value is wrapped as a shape
	// it is not an instance of.
	ErrInvalidShapeCast = errors.New("invalid shape cast")

	// ErrMandatoryShape is returned by Probe when a shape every host version
	// must provide cannot be resolved. It aborts the run.
	ErrMandatoryShape = errors.New("mandatory shape missing")
)

// UnsupportedError names the shape and property that cannot be read.
type UnsupportedError struct {
	Shape    Shape
	Property Property
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("lightup: %s.%s: %v", e.Shape, e.Property, ErrUnsupportedInHostVersion)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedInHostVersion }

// InvalidCastError names the requested shape and the actual host kind.
// Absent is set when the host version has no kind for the shape at all;
// such an error also matches ErrCapabilityAbsent.
type InvalidCastError struct {
	Shape  Shape
	Actual string
	Absent bool
}

func (e *InvalidCastError) Error() string {
	actual := e.Actual
	if actual == "" {
		actual = "<nil>"
	}
	if e.Absent {
		return fmt.Sprintf("lightup: cannot wrap %s as %s: %v (%v)", actual, e.Shape, ErrInvalidShapeCast, ErrCapabilityAbsent)
	}
	return fmt.Sprintf("lightup: cannot wrap %s as %s: %v", actual, e.Shape, ErrInvalidShapeCast)
}

func (e *InvalidCastError) Unwrap() error { return ErrInvalidShapeCast }

func (e *InvalidCastError) Is(target error) bool {
	return e.Absent && target == ErrCapabilityAbsent
}
