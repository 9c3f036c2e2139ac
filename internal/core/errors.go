package core

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord matches every *MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrDegenerateBucket matches every *DegenerateBucketError.
	ErrDegenerateBucket = errors.New("degenerate bucket")

	ErrMissingValue     = errors.New("missing value")
	ErrWrongType        = errors.New("wrong type")
	ErrNotInteger       = errors.New("not an integer")
	ErrEmptyValue       = errors.New("empty value")
	ErrReservedCustType = errors.New(`"Total" is reserved for the synthetic total row`)
	ErrNotObject        = errors.New("record is not a JSON object")
	ErrOutOfRange       = errors.New("value out of range")
)

// MalformedRecordError identifies the record that failed shape validation.
// Index is the position in the input batch, or -1 when unknown.
type MalformedRecordError struct {
	Index int
	Field string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	var prefix string
	if e.Index >= 0 {
		prefix = fmt.Sprintf("record %d", e.Index)
	} else {
		prefix = "record"
	}
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%s: field %s: %v", prefix, e.Field, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// DegenerateBucketError is returned under ZeroACVError when a group sums to
// zero ACV. An empty Quarter means the grand totals group.
type DegenerateBucketError struct {
	Quarter string
}

func (e *DegenerateBucketError) Error() string {
	if e.Quarter == "" {
		return "grand totals: total ACV is zero, percentages are undefined"
	}
	return fmt.Sprintf("quarter %q: total ACV is zero, percentages are undefined", e.Quarter)
}

func (e *DegenerateBucketError) Unwrap() error {
	return ErrDegenerateBucket
}

// WithRecordIndex returns err as a *MalformedRecordError positioned at index.
func WithRecordIndex(err error, index int) error {
	var me *MalformedRecordError
	if errors.As(err, &me) {
		return &MalformedRecordError{Index: index, Field: me.Field, Err: me.Err}
	}
	return &MalformedRecordError{Index: index, Err: err}
}
