package robot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/swiftbotics/swiftbot/internal/debug"
	"github.com/swiftbotics/swiftbot/internal/hw/camera"
)

// cameraSession is the two-state machine governing the camera: Idle with
// no buffer handle, or Active holding exactly one. The explicit states
// keep the two mutually exclusive consumption modes (live frames vs file
// recording) from running at once, and make handle acquisition
// exactly-once across repeated Start calls.
//
// The handle invariant: handle != nil iff the session is active.
type cameraSession struct {
	gw CameraGateway

	mu     sync.Mutex
	handle *camera.Handle
}

func newCameraSession(gw CameraGateway) *cameraSession {
	return &cameraSession{gw: gw}
}

// Start transitions Idle -> Active, acquiring the buffer handle from the
// gateway. Calling Start while already active is a no-op. If the gateway
// cannot lend the buffer the session stays idle and the caller may retry.
func (s *cameraSession) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return nil // already active; never re-acquire
	}

	h, err := s.gw.AcquireFrameBuffer()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	s.handle = h
	debug.Camera("session active")
	return nil
}

// Stop transitions Active -> Idle, releasing the handle exactly once.
// Always succeeds; stopping an idle session is a no-op.
func (s *cameraSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return
	}
	if err := s.gw.ReleaseFrameBuffer(s.handle); err != nil {
		debug.Error(err)
	}
	s.handle = nil
	debug.Camera("session idle")
}

// CaptureFrame copies the newest frame out of the shared buffer and
// returns it as an independently owned Frame. The rewind, size check,
// and copy happen atomically with respect to the producer inside
// Handle.Snapshot. A size mismatch fails just this capture; the session
// stays active so the caller can retry on the next frame.
func (s *cameraSession) CaptureFrame() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil {
		return Frame{}, ErrNotStarted
	}

	pix, err := s.handle.Snapshot()
	if err != nil {
		if errors.Is(err, camera.ErrStaleHandle) {
			// The borrow was revoked out from under us; surface it
			// the same way as an idle session.
			return Frame{}, fmt.Errorf("%w: %v", ErrNotStarted, err)
		}
		return Frame{}, err
	}
	if len(pix) != camera.FrameBytes {
		return Frame{}, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(pix), camera.FrameBytes)
	}

	return newFrame(pix), nil
}

// CaptureVideoTo records video to path for the given number of seconds,
// blocking for the duration. Only valid while idle: the live stream and
// the recorder cannot share the camera.
func (s *cameraSession) CaptureVideoTo(path string, seconds int) error {
	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		return ErrConflictingSession
	}
	s.mu.Unlock()

	// The gateway owns blocking and timeout policy; holding our lock
	// across the recording would wedge Start/Stop for its duration.
	if err := s.gw.CaptureVideo(path, seconds); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	return nil
}

// Active reports whether the session currently holds the buffer.
func (s *cameraSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}
