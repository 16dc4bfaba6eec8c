package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures surfaced by the trading core.
type ErrorCode string

const (
	ErrorCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrorCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrorCodePriceUnavailable    ErrorCode = "PRICE_UNAVAILABLE"
	ErrorCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrorCodeExchange            ErrorCode = "EXCHANGE_ERROR"
	ErrorCodeScheduling          ErrorCode = "SCHEDULING_ERROR"
	ErrorCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// AppError is an error carrying an ErrorCode and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func NewNotFound(message string) *AppError {
	return NewAppError(ErrorCodeNotFound, message, nil)
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrorCodeValidation, message, nil)
}

func NewPriceUnavailable(message string, cause error) *AppError {
	return NewAppError(ErrorCodePriceUnavailable, message, cause)
}

func NewInsufficientBalance(message string) *AppError {
	return NewAppError(ErrorCodeInsufficientBalance, message, nil)
}

func NewExchangeError(message string, cause error) *AppError {
	return NewAppError(ErrorCodeExchange, message, cause)
}

func NewSchedulingError(message string, cause error) *AppError {
	return NewAppError(ErrorCodeScheduling, message, cause)
}

// CodeOf returns the code of the first AppError in err's chain,
// or ErrorCodeInternal if there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
