package domain

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a component id has no record in scope.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// Is enables errors.Is() comparison for NotFoundError
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// AlreadyExistsError is returned when a create collides with an existing id.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

func (e *AlreadyExistsError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q already exists", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s already exists", e.Entity)
}

// Is enables errors.Is() comparison for AlreadyExistsError
func (e *AlreadyExistsError) Is(target error) bool {
	_, ok := target.(*AlreadyExistsError)
	return ok
}

// InvalidRecordError represents a validation failure on write.
type InvalidRecordError struct {
	Field   string
	Message string
}

func (e *InvalidRecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid component: %s %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid component: %s", e.Message)
}

// StorageError wraps a backend failure. It is never used for a plain miss.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

var (
	ErrNotFound    = &NotFoundError{Entity: "component"}
	ErrDuplicateID = &AlreadyExistsError{Entity: "component"}

	// ErrMalformedRequest marks a redirect path with the wrong shape or an
	// unknown branch. The resolver treats it exactly like ErrNotFound.
	ErrMalformedRequest = errors.New("malformed redirect request")
)

// NewDuplicateIDError creates an AlreadyExistsError for id.
func NewDuplicateIDError(id string) error {
	return &AlreadyExistsError{Entity: "component", ID: id}
}

// NewInvalidRecordError creates an InvalidRecordError.
func NewInvalidRecordError(field, message string) error {
	return &InvalidRecordError{Field: field, Message: message}
}

// NewStorageError wraps err as a StorageError unless it already carries one of
// the typed store errors.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsDuplicateID(err) || IsInvalidRecord(err) || IsStorage(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateID checks if an error is an AlreadyExistsError
func IsDuplicateID(err error) bool {
	return errors.Is(err, ErrDuplicateID)
}

// IsInvalidRecord checks if an error is an InvalidRecordError
func IsInvalidRecord(err error) bool {
	var invalid *InvalidRecordError
	return errors.As(err, &invalid)
}

// IsStorage checks if an error is a StorageError
func IsStorage(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}
