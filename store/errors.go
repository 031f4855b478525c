// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"

	"emperror.dev/errors"
)

// ErrItemNotFound is returned when a link or owner record does not exist.
const ErrItemNotFound = errors.Sentinel("item not found")

// ItemOperationError describes a failed store operation on a single record.
type ItemOperationError struct {
	Err        error
	Identifier string
	Operation  string
}

func (e ItemOperationError) Error() string {
	return fmt.Sprintf("%s operation on %q failed: %v", e.Operation, e.Identifier, e.Err)
}

func (e ItemOperationError) Unwrap() error {
	return e.Err
}

// InternalError is a backend failure. Retryable reports whether the backend
// considered the failure transient (throttling, internal server errors).
type InternalError struct {
	Reason    string
	Retryable bool
}

func (e InternalError) Error() string {
	return fmt.Sprintf("store internal error: %s", e.Reason)
}

// NotFound wraps ErrItemNotFound for the given operation.
func NotFound(operation, id string) error {
	return ItemOperationError{Err: ErrItemNotFound, Identifier: id, Operation: operation}
}

// IsNotFound reports whether err signals a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}
