// Package repository defines error types that are reused across multiple
// repositories and both store implementations.  These sentinel values allow
// higher layers such as services and handlers to distinguish between
// different failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as a vendor reading another vendor's PIN.
// Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrRedemptionLimit is returned by IncrementDealRedemptions when the
// deal's max_redemptions ceiling has already been reached.
var ErrRedemptionLimit = errors.New("redemption limit reached")
