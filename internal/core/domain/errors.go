package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrThrottled    = errors.New("throttled")
	ErrTemporary    = errors.New("temporary failure")

	// ErrNoDocuments is informational: there is nothing to index or query yet.
	ErrNoDocuments = errors.New("no documents available")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Kind returns the first matching error kind, or nil for unclassified errors.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidInput,
		ErrUnauthorized,
		ErrNotFound,
		ErrThrottled,
		ErrTemporary,
		ErrNoDocuments,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
