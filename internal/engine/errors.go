package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStopped is returned by Run when the handler issued a stop. It marks
	// a forced halt, as opposed to the stack draining naturally.
	ErrStopped = errors.New("run stopped by handler")
	// ErrHandlerRequired indicates a missing handler.
	ErrHandlerRequired = errors.New("handler is required")
	// ErrRegistryRequired indicates a missing scene registry.
	ErrRegistryRequired = errors.New("scene registry is required")
	// ErrSceneRequired indicates a missing initial scene.
	ErrSceneRequired = errors.New("initial scene is required")
	// ErrTypeIDRequired indicates a scene codec without a type id.
	ErrTypeIDRequired = errors.New("scene type id is required")
	// ErrTypeIDTaken indicates a scene type id registered twice.
	ErrTypeIDTaken = errors.New("scene type id is already registered")
	// ErrDecoderRequired indicates a scene codec without a decode function.
	ErrDecoderRequired = errors.New("scene decode function is required")
	// ErrStepIndexRange indicates a persisted frame whose step index falls
	// outside its scene's step list.
	ErrStepIndexRange = errors.New("step index out of range")
)

// IdentifierError reports a scene type id that did not match the codec
// trying to decode it.
type IdentifierError struct {
	Expected string
	Received string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("scene identifier mismatch: expected %q, received %q", e.Expected, e.Received)
}

// DecodeError reports that no registered codec could decode an encoded
// section. It carries one sub-error per attempted codec.
type DecodeError struct {
	Errs []error
}

func (e *DecodeError) Error() string {
	if len(e.Errs) == 0 {
		return "cannot decode section: no scene codecs registered"
	}
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		parts = append(parts, err.Error())
	}
	return "cannot decode section: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-codec sub-errors to errors.Is and errors.As.
func (e *DecodeError) Unwrap() []error {
	return e.Errs
}

// InvalidOptionError reports a choice reply whose option id was not one
// of the ids minted for the prompt.
type InvalidOptionError struct {
	Expected []string
	Received string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid option id %q: expected one of %s", e.Received, strings.Join(e.Expected, ", "))
}

// NoOptionsError reports a choice step that had no options to offer.
type NoOptionsError struct {
	Choice Choice
}

func (e *NoOptionsError) Error() string {
	return "choice has no options"
}
