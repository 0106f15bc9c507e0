package era5

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when the dataset file does not exist yet.
	ErrNoData = errors.New("no dataset available")

	// ErrDatasetMalformed is returned when the dataset cannot be read or lacks
	// an expected axis or field.
	ErrDatasetMalformed = errors.New("dataset malformed")

	// ErrFieldUnavailable is returned when a field has no usable value at the
	// resolved grid cell.
	ErrFieldUnavailable = errors.New("field unavailable")

	// ErrAcquisitionFailed is returned when a new snapshot could not be
	// produced.
	ErrAcquisitionFailed = errors.New("acquisition failed")
)

// MalformedError describes which part of the dataset is unusable.
type MalformedError struct {
	Name   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %q: %s", ErrDatasetMalformed, e.Name, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrDatasetMalformed
}

// FieldError reports a missing or masked value of a single field.
type FieldError struct {
	Field    string
	LatIndex int
	LonIndex int
	Reason   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s at [0,%d,%d]: %s", ErrFieldUnavailable, e.Field, e.LatIndex, e.LonIndex, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrFieldUnavailable
}

func malformed(name, format string, args ...any) error {
	return &MalformedError{Name: name, Reason: fmt.Sprintf(format, args...)}
}
