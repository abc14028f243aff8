package kits

import "errors"

var (
	// ErrNotFound indicates the kit does not exist for the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDeleteUnverified indicates the record was still present after delete.
	ErrDeleteUnverified = errors.New("delete not verified")

	// ErrMirrorFailed indicates at least one blob could not be written.
	ErrMirrorFailed = errors.New("mirror failed")
)
