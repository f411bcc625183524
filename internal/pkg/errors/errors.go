package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyJourney signals a conversion with no prior touchpoints. Callers
	// treat the order as a single direct touchpoint.
	ErrEmptyJourney = errors.New("empty journey")
	// ErrModelUnknown signals an unsupported attribution model type.
	ErrModelUnknown = errors.New("unknown attribution model")
	// ErrInsufficientHistory signals too few days of revenue history for a
	// forecast model. The model is omitted, not failed.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDataMissing signals a recoverable data-quality gap (e.g. no product
	// cost configured). Resolved by a zero-cost fallback, never a hard failure.
	ErrDataMissing = errors.New("data missing")
	// ErrInvariantViolation signals a credit map that does not sum to the
	// order revenue. The write is rejected; this is a calculation defect.
	ErrInvariantViolation = errors.New("attribution invariant violation")
)
