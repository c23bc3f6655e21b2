package domain

import "errors"

// Error kinds shared by every layer. Wrap them with fmt.Errorf("...: %w") and
// test with errors.Is.
var (
	// ErrNotFound is an unknown topic or slug; user-correctable.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is an empty or missing required field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrGenerationFailure is any failed, timed out or empty text generation.
	ErrGenerationFailure = errors.New("generation failure")
	// ErrMalformedTopic is a topic missing a field a formatter needs.
	ErrMalformedTopic = errors.New("malformed topic")
	// ErrHostDelivery is a failed post or form render on the chat platform.
	ErrHostDelivery = errors.New("host delivery failure")
	// ErrStaleEvent is an event for a session that already left the expected stage.
	ErrStaleEvent = errors.New("stale event")
	// ErrRateLimited means the user asked for too many generations too quickly.
	ErrRateLimited = errors.New("rate limited")
)
