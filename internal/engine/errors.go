package engine

import (
	"errors"
	"fmt"
)

// Error represents a failure detected during rule evaluation or an action.
//
// Engine errors include:
//   - Not found: acknowledged or mutated order does not exist
//   - Invalid state: a replace was requested with no prior value, or an
//     order field was moved to a state the lifecycle does not define
//   - Already acknowledged: second acknowledge on the same order
//
// Error includes structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// OrderID identifies the affected purchase order, when known.
	OrderID string

	// VendorID identifies the affected vendor, when known.
	VendorID string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the referenced purchase order doesn't exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidState indicates a mutation the lifecycle does not define,
	// or a rule guard that was bypassed.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeAlreadyAcknowledged indicates a second acknowledge on an order.
	ErrCodeAlreadyAcknowledged ErrorCode = "ALREADY_ACKNOWLEDGED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%s: %s (order=%s)", e.Code, e.Message, e.OrderID)
	}
	if e.VendorID != "" {
		return fmt.Sprintf("%s: %s (vendor=%s)", e.Code, e.Message, e.VendorID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound returns true if the error is a not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeNotFound
	}
	return false
}

// IsInvalidState returns true if the error is an invalid-state error.
func IsInvalidState(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeInvalidState
	}
	return false
}

// IsAlreadyAcknowledged returns true if the error is a double-acknowledge error.
func IsAlreadyAcknowledged(err error) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeAlreadyAcknowledged
	}
	return false
}

// NewNotFound creates an Error for a missing purchase order.
func NewNotFound(orderID string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: "purchase order does not exist",
		OrderID: orderID,
	}
}

// NewInvalidState creates an Error for an undefined lifecycle transition.
func NewInvalidState(orderID, message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidState,
		Message: message,
		OrderID: orderID,
	}
}

// NewAlreadyAcknowledged creates an Error for a repeated acknowledge.
func NewAlreadyAcknowledged(orderID string) *Error {
	return &Error{
		Code:    ErrCodeAlreadyAcknowledged,
		Message: "purchase order is already acknowledged",
		OrderID: orderID,
	}
}
