package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/bartab/internal/repository"
)

// ErrValidation is the target for errors.Is on every *ValidationError.
var ErrValidation = errors.New("invalid input")

// ValidationError reports rejected input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for f, msg := range e.Fields {
			return fmt.Sprintf("%s: %s", f, msg)
		}
	}
	return ErrValidation.Error()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// validator collects field errors before returning them together.
type validator map[string]string

func (v validator) check(ok bool, field, msg string) {
	if !ok {
		if _, seen := v[field]; !seen {
			v[field] = msg
		}
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

// TabAlreadyOpenError is returned by an explicit open when the caller
// already has an OPEN tab at the venue.
type TabAlreadyOpenError struct {
	TabID uint64
}

func (e *TabAlreadyOpenError) Error() string {
	return "you already have an open tab at this venue"
}

func (e *TabAlreadyOpenError) Unwrap() error { return repository.ErrDuplicateOpenTab }

var (
	ErrExpired         = errors.New("verification code expired")
	ErrLocked          = errors.New("too many attempts, request a new code")
	ErrInvalidCode     = errors.New("invalid verification code")
	ErrResendTooSoon   = errors.New("please wait before requesting another code")
	ErrPaymentDeclined = errors.New("payment declined")
)
