package service

import "errors"

var (
	// ErrNotFound means the addressed record does not exist in the caller's
	// tenant scope.
	ErrNotFound = errors.New("record not found")

	// ErrConflict covers domain-level uniqueness violations and lost
	// read-modify-write races on the record version.
	ErrConflict = errors.New("conflicting record state")
)
