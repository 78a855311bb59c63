// Package apperr defines the error taxonomy shared by the alert pipeline.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull is returned when the prediction pool cannot accept more work
	ErrQueueFull = errors.New("task queue is full")
	// ErrPoolStopped is returned when submitting to a stopped pool
	ErrPoolStopped = errors.New("worker pool is stopped")
	// ErrTaskDropped completes handles of queued tasks discarded at shutdown
	ErrTaskDropped = errors.New("task dropped during shutdown")
	// ErrStaleAlert signals a lost optimistic version check on an alert row
	ErrStaleAlert = errors.New("alert was modified concurrently")
	// ErrNotFound is returned by repositories for missing rows
	ErrNotFound = errors.New("not found")
)

// ValidationError marks a reading that is rejected before entering the pipeline
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid reading: " + e.Reason
	}
	return fmt.Sprintf("invalid reading: %s %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PredictionError covers timeouts, transport failures and malformed responses
type PredictionError struct {
	Op  string
	Err error
}

func (e *PredictionError) Error() string {
	if e.Err == nil {
		return "prediction " + e.Op + " failed"
	}
	return fmt.Sprintf("prediction %s failed: %v", e.Op, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// NewPredictionError wraps err as a PredictionError
func NewPredictionError(op string, err error) *PredictionError {
	return &PredictionError{Op: op, Err: err}
}

// PersistenceError marks a store failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err as a PersistenceError. Nil in, nil out.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// NotificationError marks a failed notification send
type NotificationError struct {
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// NewNotificationError wraps err as a NotificationError
func NewNotificationError(recipient string, err error) *NotificationError {
	return &NotificationError{Recipient: recipient, Err: err}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPrediction reports whether err is a PredictionError
func IsPrediction(err error) bool {
	var pe *PredictionError
	return errors.As(err, &pe)
}

// IsPersistence reports whether err is a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// IsNotification reports whether err is a NotificationError
func IsNotification(err error) bool {
	var ne *NotificationError
	return errors.As(err, &ne)
}
