package queue

import "errors"

var (
	// ErrNotFound is returned when no queue or song exists at the given key.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when an ownership or role check fails.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrOutOfRange is returned when a position override exceeds the queue.
	ErrOutOfRange = errors.New("position out of range")
	// ErrDuplicateSubmission is returned when the same submitter already
	// queued the same URL.
	ErrDuplicateSubmission = errors.New("duplicate submission")
	// ErrMetadataUnavailable is returned when no resolver could describe a URL.
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	// ErrPlaybackLaunch is returned when the player process could not start.
	ErrPlaybackLaunch = errors.New("player launch failed")

	// ErrNoActiveQueue is returned when an operation needs an active queue
	// and none was selected.
	ErrNoActiveQueue = errors.New("no active queue")
	// ErrQuotaExceeded is returned when a submitter reached the queued songs cap.
	ErrQuotaExceeded = errors.New("queued songs limit reached")
	// ErrAlreadyPerformed is returned when swapping a song that was performed.
	ErrAlreadyPerformed = errors.New("song already performed")
	// ErrInvalidURL is returned for URLs that cannot be queued.
	ErrInvalidURL = errors.New("invalid url")
)
