package robot

import "errors"

// Failures reported by the device facade and its camera session. All of
// them are synchronous, per-call errors; none leave the robot in a state
// needing external repair. Match with errors.Is.
var (
	// ErrResourceUnavailable means the camera buffer could not be
	// acquired at StartCamera. Recoverable; the caller may retry.
	ErrResourceUnavailable = errors.New("camera resource unavailable")

	// ErrNotStarted means a frame was requested while the camera is
	// idle. A caller programming error; start the camera first.
	ErrNotStarted = errors.New("camera not started")

	// ErrSizeMismatch means the shared buffer contents did not match
	// the expected fixed frame size. The session stays active; the
	// next capture attempt may succeed.
	ErrSizeMismatch = errors.New("frame buffer size mismatch")

	// ErrConflictingSession means video capture was requested while
	// the live camera session is active. Stop the camera first.
	ErrConflictingSession = errors.New("video capture conflicts with active camera session")

	// ErrCaptureFailed wraps an underlying video capture failure.
	ErrCaptureFailed = errors.New("video capture failed")

	// ErrInvalidButton rejects a button identifier outside A/B/X/Y.
	ErrInvalidButton = errors.New("invalid button id")
)
