package services

import "errors"

var (
	// ErrListingNotFound is returned when a listing does not exist or is no longer live.
	ErrListingNotFound = errors.New("listing not found")
	// ErrUserNotFound is returned when the caller has no stored profile yet.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotificationNotFound is returned when a notification does not belong to the caller.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrUnauthenticated is returned when an operation needs a signed-in user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller may not act for the requested user.
	ErrForbidden = errors.New("forbidden")
)
