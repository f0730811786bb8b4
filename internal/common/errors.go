// Package common defines shared sentinel errors used across the RunaVault
// server layers. Callers should use errors.Is to match these values; the HTTP
// layer maps them to status codes. Error kinds are produced at the point of
// failure, never inferred from message text.
package common

import "errors"

var (
	// Validation errors (bad or missing request fields).
	ErrValidation = errors.New("validation error")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Storage-level errors.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a conditional put hits a still-extant row
	// with the same key. Fatal for create/edit, benign for share.
	ErrDuplicate = errors.New("already exists")

	// ErrIncompleteData marks a stored secret whose ciphertext is missing.
	// Only the single-secret get path reports it; listings degrade instead.
	ErrIncompleteData = errors.New("incomplete secret data")

	// ErrInternal is the generic wrapper for storage/transport failures.
	ErrInternal = errors.New("internal error")
)
