package dataprocessing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("invalid range")
	// ErrAlreadyConverted is returned when converting a physical-unit table.
	ErrAlreadyConverted = errors.New("table already in physical units")
	// ErrUnknownAggregation is returned for modes other than sum and mean.
	ErrUnknownAggregation = errors.New("unknown aggregation mode")
	// ErrUnitsMismatch is returned when a caller states units the table is not in.
	ErrUnitsMismatch = errors.New("units mismatch")
	// ErrUnknownCondition is returned for options outside the condition selector.
	ErrUnknownCondition = errors.New("unknown condition option")
	// ErrUnsupportedFormat is returned for input files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported input format")
	// ErrNotFinite is returned for NaN and infinite measurements.
	ErrNotFinite = errors.New("not a finite number")
)

// MissingColumnError reports a required column absent from the input header.
type MissingColumnError struct {
	Column string
	Header []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q (header: %v)", e.Column, e.Header)
}

// ParseError reports a cell that could not be converted.
// Row is 1-based and counts the header line.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
