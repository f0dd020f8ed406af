// Package robot exposes the SwiftBot device facade: motors, ultrasonic
// distance sensor, four buttons with indicator LEDs, RGB underlighting,
// and the camera session.
//
// The facade talks to hardware exclusively through the Gateway
// interfaces below, so it runs unchanged against the real Raspberry Pi
// gateway or a fake in tests. The interfaces are deliberately small and
// composed, so consumers can depend on just the capability they use.
package robot

import "github.com/swiftbotics/swiftbot/internal/hw/camera"

// MotorGateway drives the two wheel motors.
type MotorGateway interface {
	// SetMotorSpeeds sets wheel speeds, each in [-1.0, 1.0].
	SetMotorSpeeds(left, right float64) error
}

// DistanceGateway reads the ultrasonic ranger.
type DistanceGateway interface {
	// ReadDistance returns the distance to the nearest object in
	// centimetres.
	ReadDistance() (float64, error)
}

// ButtonGateway polls buttons and drives their indicator LEDs.
type ButtonGateway interface {
	// ReadButton reports whether the button is currently held down,
	// independent of the event dispatch path.
	ReadButton(id int) (bool, error)
	// SetButtonLED sets an indicator LED brightness in [0.0, 1.0].
	SetButtonLED(id int, level float64) error
	// RegisterButtonObserver binds the sink that will receive press
	// and release transitions from the gateway's event goroutine.
	// Called once, at facade construction.
	RegisterButtonObserver(sink ButtonEvents)
}

// LightGateway controls the SN3218 underlighting.
type LightGateway interface {
	SetUnderlight(light, r, g, b int) error
	FillUnderlighting(r, g, b int) error
	ClearUnderlighting() error
}

// CameraGateway lends the shared frame buffer and records video.
type CameraGateway interface {
	// AcquireFrameBuffer returns a live handle to the shared frame
	// region, or an error if the camera is busy or unavailable.
	AcquireFrameBuffer() (*camera.Handle, error)
	// ReleaseFrameBuffer returns the handle and stops the stream.
	ReleaseFrameBuffer(h *camera.Handle) error
	// CaptureVideo records to path for the given duration, blocking
	// until done.
	CaptureVideo(path string, seconds int) error
}

// ButtonEvents is the raw sink the gateway pushes button transitions
// into, from whatever goroutine its event source uses. Identifiers are
// raw hardware values; the dispatcher validates them.
type ButtonEvents interface {
	NotifyPressed(id int) error
	NotifyReleased(id int) error
}

// Gateway is the complete actuator surface the facade composes.
type Gateway interface {
	MotorGateway
	DistanceGateway
	ButtonGateway
	LightGateway
	CameraGateway
	Close() error
}
