package errors

import "github.com/pkg/errors"

var (
	// ErrMailSourceUnavailable wraps IMAP connectivity failures; a cycle
	// hitting it aborts and retries on the next schedule.
	ErrMailSourceUnavailable = errors.New("mail source unavailable")

	// ErrNotFound is returned by lookups that found no entry.
	ErrNotFound = errors.New("not found")
)
