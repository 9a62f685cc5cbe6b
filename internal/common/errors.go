// Package common defines shared constants, helpers and sentinel errors used
// across TraceKeeper server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed access token).
	ErrInvalidToken = errors.New("invalid token")

	// Infrastructure errors. Retryable by the caller.
	ErrBackendUnavailable = errors.New("secret backend unavailable")

	// Policy rejections. Safe to show to the end user.
	ErrNoRecentInfection     = errors.New("no recent infection")
	ErrNoPendingNotification = errors.New("no pending notification")
	ErrNotificationExpired   = errors.New("notification window expired")
	ErrNoReports             = errors.New("missing contact tokens")
	ErrNoValidContacts       = errors.New("no valid contact tokens")
)

var policyErrors = []error{
	ErrNoRecentInfection,
	ErrNoPendingNotification,
	ErrNotificationExpired,
	ErrNoReports,
	ErrNoValidContacts,
}

// IsPolicyError reports whether err is (or wraps) one of the policy
// rejections whose message may be surfaced to the end user.
func IsPolicyError(err error) bool {
	for _, p := range policyErrors {
		if errors.Is(err, p) {
			return true
		}
	}
	return false
}
