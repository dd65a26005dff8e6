package service

import "errors"

// ErrValidation matches every ValidationError via errors.Is.
var ErrValidation = errors.New("validation error")

// ValidationError reports malformed or missing input. It is raised before
// any storage access.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrInvalidStatus = &ValidationError{Field: "status", Msg: "must be a boolean"}
	ErrInvalidDate   = &ValidationError{Field: "date", Msg: "must be a calendar date (YYYY-MM-DD)"}
)
