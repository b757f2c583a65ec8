/*
errors.go - Centralized error types for the export pipeline

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stage packages wrap these with file/row context.

ERROR CATEGORIES:
  1. Contract errors - a required column or field is absent (fatal)
  2. Date errors - a date field does not parse (fatal)
  3. Identifier warnings - an ID is not 9 digits after stripping (non-fatal)
  4. Configuration errors - unknown source driver, bad rules file
  5. Run bookkeeping - finishing a run that was never started

USAGE:
    if errors.Is(err, generic.ErrMissingColumn) {
        // abort: the extract does not honor its header contract
    }

SEE ALSO:
  - extract/csv.go: raises MissingColumnError
  - segment/builder.go: raises MissingFieldError, DateParseError
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingColumn is returned when the extract header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrMissingField is returned when a required identity field is blank on a row.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidDate is returned when a date field fails to parse.
	ErrInvalidDate = errors.New("invalid date")

	// ErrMalformedIdentifier marks an ID that is not 9 digits after stripping
	// punctuation. Reported as a warning; never aborts a run.
	ErrMalformedIdentifier = errors.New("malformed identifier")

	// ErrInvalidFlag is returned when a yes/no column holds an unrecognized value.
	ErrInvalidFlag = errors.New("invalid flag")

	// ErrUnknownDriver is returned for an unsupported source driver name.
	ErrUnknownDriver = errors.New("unknown source driver")

	// ErrRunNotFound is returned when finishing a run that was never started.
	ErrRunNotFound = errors.New("run not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingColumnError names the column an input file failed to provide.
type MissingColumnError struct {
	File   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.File, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// MissingFieldError names a blank required field on a specific row.
type MissingFieldError struct {
	Line       int
	EmployeeID string
	Field      string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("line %d (employee %q): required field %s is blank", e.Line, e.EmployeeID, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// DateParseError reports a date value that matched none of the accepted layouts.
type DateParseError struct {
	Field string
	Value string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse date %q", e.Field, e.Value)
}

func (e *DateParseError) Unwrap() error { return ErrInvalidDate }

// MalformedIdentifierError describes an identifier passed through unchanged.
type MalformedIdentifierError struct {
	Value  string
	Digits int
}

func (e *MalformedIdentifierError) Error() string {
	return fmt.Sprintf("identifier %q has %d digits, expected 9", e.Value, e.Digits)
}

func (e *MalformedIdentifierError) Unwrap() error { return ErrMalformedIdentifier }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsFatal returns true if the error must abort the whole run.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrMalformedIdentifier)
}

// IsContractError returns true if the input did not honor its column/field contract.
func IsContractError(err error) bool {
	return errors.Is(err, ErrMissingColumn) || errors.Is(err, ErrMissingField)
}
