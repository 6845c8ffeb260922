// Package errors provides standardized error handling for the fieldbus
// framework. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping across the system.
//
// Classification follows the framework's failure taxonomy: configuration
// errors (invalid) are raised synchronously before any scheduling begins,
// processing errors (fatal) stop the whole application, and shutdown
// timeouts (transient) are logged-and-continue degradations.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
type ErrorClass int

const (
	// ErrorTransient represents degradations that are logged and tolerated,
	// such as drain or runner-stop timeouts during shutdown.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents configuration errors: structural validation
	// failures raised at registration time, before processing begins.
	ErrorInvalid
	// ErrorFatal represents processing errors that stop the application.
	ErrorFatal
)

// String returns the string representation of ErrorClass.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions.
var (
	// Application lifecycle errors
	ErrAlreadyStarted = errors.New("application already started")
	ErrNotStarted     = errors.New("application not started")
	ErrAlreadyStopped = errors.New("application already stopped")

	// Registration errors
	ErrDuplicateComponent = errors.New("component already registered")
	ErrNotRegistered      = errors.New("component not registered")
	ErrUnknownKind        = errors.New("unknown component kind")
	ErrDuplicateField     = errors.New("duplicate field name")
	ErrNoRunner           = errors.New("component does not have a runner")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")

	// Shutdown degradations
	ErrDrainTimeout = errors.New("event queue drain timeout")
	ErrStopTimeout  = errors.New("runner stop timeout")
)

// ClassifiedError wraps an error with its classification and the component
// context it occurred in.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsInvalid checks if an error is a configuration error.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrDuplicateComponent) ||
		errors.Is(err, ErrNotRegistered) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrDuplicateField)
}

// IsFatal checks if an error is a processing error that should stop the
// application.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return false
}

// IsTransient checks if an error is a tolerated degradation.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrDrainTimeout) || errors.Is(err, ErrStopTimeout)
}

// Classify returns the error class for an error. Unclassified errors default
// to fatal: an unexpected failure inside the framework stops processing.
func Classify(err error) ErrorClass {
	if IsInvalid(err) {
		return ErrorInvalid
	}
	if IsTransient(err) {
		return ErrorTransient
	}
	return ErrorFatal
}

// newClassified creates a new classified error.
// This is an internal helper - use WrapInvalid(), WrapFatal() or
// WrapTransient() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as a configuration error with context.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as a processing error with context.
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapTransient wraps an error as a tolerated degradation with context.
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}
