package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError is returned when a write carries a missing or malformed field.
// The ledger is left unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError is returned when a referenced session or codon does not exist
type NotFoundError struct {
	Resource string // "session" or "codon"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// AuthError is returned when a credential is missing, invalid or expired
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// CacheUnavailableError wraps a transient failure of the query cache backend.
// Callers recover from it by bypassing the cache.
type CacheUnavailableError struct {
	Op    string // "get" or "put"
	Cause error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("query cache %s failed: %v", e.Op, e.Cause)
}

func (e *CacheUnavailableError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsCacheUnavailable reports whether err is (or wraps) a CacheUnavailableError
func IsCacheUnavailable(err error) bool {
	var target *CacheUnavailableError
	return errors.As(err, &target)
}

// validationFromValidator converts go-playground validator output into a
// ValidationError naming the first offending field.
func validationFromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required", "notblank":
		msg = "is required"
	case "max":
		msg = "must be at most " + fe.Param() + " long"
	case "min":
		msg = "must have at least " + fe.Param() + " entries"
	default:
		msg = "failed " + fe.Tag() + " validation"
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}
