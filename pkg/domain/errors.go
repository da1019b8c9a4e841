package domain

import "errors"

// ErrProfileNotFound is returned when no completed profile exists for a participant.
var ErrProfileNotFound = errors.New("profile not found")

// ErrStoreUnavailable marks failures of a backing store. The session is left untouched.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrInvalidParticipant is returned when a participant id cannot be used as a
// storage key. Retrying never helps.
var ErrInvalidParticipant = errors.New("invalid participant id")

// ErrInvalidProfile is returned when a profile is missing a field or carries an unknown value.
var ErrInvalidProfile = errors.New("invalid profile")

// ErrClosed is returned when work is submitted after shutdown.
var ErrClosed = errors.New("closed")
