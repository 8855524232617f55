package types

import "errors"

var (
	ErrParcelNotFound   = errors.New("parcel not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoTrackingPoints = errors.New("no tracking points recorded for parcel")

	// ErrAuthRequired is raised for frames arriving before a successful auth handshake
	ErrAuthRequired = errors.New("authentication required")
	// ErrAuthFailed is raised when the supplied token does not verify
	ErrAuthFailed = errors.New("authentication failed")
	// ErrForbidden is raised when the identity may not observe or report for the parcel
	ErrForbidden = errors.New("not allowed for this parcel")

	ErrNotAssignedAgent = errors.New("agent is not assigned to this parcel")

	// ErrValidation marks malformed coordinates or missing required fields
	ErrValidation = errors.New("invalid location payload")

	// ErrPersistence marks a transient store failure: the sender may retry
	ErrPersistence = errors.New("failed to persist tracking point")
)
