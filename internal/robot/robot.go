package robot

import (
	"fmt"
)

// Robot is the public SwiftBot surface: motor control, distance reads,
// buttons with indicator LEDs, underlighting, and the camera session.
// Motor, LED, and lighting calls are stateless pass-throughs to the
// gateway; the camera session and button dispatch carry the only state.
type Robot struct {
	gw         Gateway
	session    *cameraSession
	dispatcher *buttonDispatcher
}

// New builds the facade over the given gateway and registers the button
// observer. The observer binding is fixed for the robot's lifetime; pass
// nil to ignore button events.
func New(gw Gateway, obs ButtonObserver) *Robot {
	r := &Robot{
		gw:         gw,
		session:    newCameraSession(gw),
		dispatcher: newButtonDispatcher(obs),
	}
	gw.RegisterButtonObserver(r.dispatcher)
	return r
}

// --- Motion ---

// Forward drives both wheels forward; speed in [0.0, 1.0].
func (r *Robot) Forward(speed float64) error {
	if err := checkUnitRange("speed", speed); err != nil {
		return err
	}
	return r.gw.SetMotorSpeeds(speed, speed)
}

// Backward drives both wheels backward; speed in [0.0, 1.0].
func (r *Robot) Backward(speed float64) error {
	if err := checkUnitRange("speed", speed); err != nil {
		return err
	}
	return r.gw.SetMotorSpeeds(-speed, -speed)
}

// TurnLeft spins in place to the left; speed in [0.0, 1.0].
func (r *Robot) TurnLeft(speed float64) error {
	if err := checkUnitRange("speed", speed); err != nil {
		return err
	}
	return r.gw.SetMotorSpeeds(-speed, speed)
}

// TurnRight spins in place to the right; speed in [0.0, 1.0].
func (r *Robot) TurnRight(speed float64) error {
	if err := checkUnitRange("speed", speed); err != nil {
		return err
	}
	return r.gw.SetMotorSpeeds(speed, -speed)
}

// Stop halts both motors.
func (r *Robot) Stop() error {
	return r.gw.SetMotorSpeeds(0, 0)
}

// SetMotorSpeeds sets each wheel independently, each in [-1.0, 1.0].
func (r *Robot) SetMotorSpeeds(left, right float64) error {
	if left < -1 || left > 1 {
		return fmt.Errorf("left speed out of range [-1,1]: %g", left)
	}
	if right < -1 || right > 1 {
		return fmt.Errorf("right speed out of range [-1,1]: %g", right)
	}
	return r.gw.SetMotorSpeeds(left, right)
}

// --- Sensor ---

// ReadDistance returns the ultrasonic distance in centimetres.
func (r *Robot) ReadDistance() (float64, error) {
	return r.gw.ReadDistance()
}

// --- Buttons and LEDs ---

// IsButtonPressed polls the button's current state directly, independent
// of the event dispatch path.
func (r *Robot) IsButtonPressed(b Button) (bool, error) {
	if !b.valid() {
		return false, fmt.Errorf("%w: %d", ErrInvalidButton, int(b))
	}
	return r.gw.ReadButton(int(b))
}

// SetButtonLED sets a button's indicator LED brightness in [0.0, 1.0].
func (r *Robot) SetButtonLED(b Button, level float64) error {
	if !b.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidButton, int(b))
	}
	if err := checkUnitRange("brightness", level); err != nil {
		return err
	}
	return r.gw.SetButtonLED(int(b), level)
}

// --- Underlighting ---

// SetUnderlight sets one underlight's color; channels in [0, 255].
func (r *Robot) SetUnderlight(light, red, green, blue int) error {
	return r.gw.SetUnderlight(light, red, green, blue)
}

// FillUnderlighting sets all underlights to the same color.
func (r *Robot) FillUnderlighting(red, green, blue int) error {
	return r.gw.FillUnderlighting(red, green, blue)
}

// ClearUnderlighting turns all underlights off.
func (r *Robot) ClearUnderlighting() error {
	return r.gw.ClearUnderlighting()
}

// --- Camera ---

// StartCamera begins the live frame session. Idempotent while active.
func (r *Robot) StartCamera() error {
	return r.session.Start()
}

// StopCamera ends the live frame session and releases the camera.
func (r *Robot) StopCamera() {
	r.session.Stop()
}

// GetFrame captures the latest camera frame. The camera must be started.
func (r *Robot) GetFrame() (Frame, error) {
	return r.session.CaptureFrame()
}

// CaptureVideo records video to path for the given duration in seconds,
// blocking until done. Fails if the live session is active.
func (r *Robot) CaptureVideo(path string, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("duration must be positive, got %d", seconds)
	}
	return r.session.CaptureVideoTo(path, seconds)
}

// CameraActive reports whether the live frame session is running.
func (r *Robot) CameraActive() bool {
	return r.session.Active()
}

// Close stops the camera session and shuts down the gateway. Callers
// must not rely on finalization to release the camera.
func (r *Robot) Close() error {
	r.session.Stop()
	return r.gw.Close()
}

func checkUnitRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s out of range [0,1]: %g", name, v)
	}
	return nil
}
