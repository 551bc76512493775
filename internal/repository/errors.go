// Package repository defines error types that are reused across the
// invitation and ticket stores. These sentinel values allow higher layers
// such as the verifier and the handlers to distinguish between different
// failure scenarios without knowing which storage driver is in use.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record with the requested id exists.
// Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the compare-and-set on the scanned flag
// fails because the record was already scanned. The record returned
// alongside it is the stored state, including the original ScannedAt.
var ErrConflict = errors.New("conflict")

// ErrNotSold is returned by a ticket scan when the sold-before-entry
// policy is on and the ticket has not been sold.
var ErrNotSold = errors.New("ticket not sold")

// ErrAlreadySold is returned by Sell when the ticket was sold before.
var ErrAlreadySold = errors.New("ticket already sold")

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("storage failure")

// StorageError wraps a failure of the backing store (unreadable or
// unwritable file, corrupt contents, SQL errors). When a StorageError is
// returned from a mutating call the collection is left unchanged.
type StorageError struct {
	Op   string // read, write, decode, query, ...
	Path string // file path or table name
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
