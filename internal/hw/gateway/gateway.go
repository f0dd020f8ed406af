// Package gateway assembles the SwiftBot's hardware drivers into the
// actuator surface the robot facade consumes: GPIO motors and buttons,
// the ultrasonic ranger, SN3218 underlighting, and the camera backend
// that feeds the shared frame buffer.
package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/swiftbotics/swiftbot/internal/debug"
	"github.com/swiftbotics/swiftbot/internal/hw/camera"
	"github.com/swiftbotics/swiftbot/internal/hw/gpio"
	"github.com/swiftbotics/swiftbot/internal/hw/motor"
	"github.com/swiftbotics/swiftbot/internal/hw/ultrasonic"
	"github.com/swiftbotics/swiftbot/internal/hw/underlight"
	"github.com/swiftbotics/swiftbot/internal/robot"
)

// ButtonPins maps one button to its input pin and indicator LED pin.
type ButtonPins struct {
	Pin    int
	LEDPin int
}

// Config wires the gateway to concrete pins and devices.
type Config struct {
	Motors     motor.Config
	Buttons    [4]ButtonPins // indexed by button id A=0 B=1 X=2 Y=3
	PollEvery  time.Duration // button poll period; doubles as debounce window
	Ultrasonic struct {
		TriggerPin int
		EchoPin    int
		Timeout    time.Duration
	}
}

// Gateway is the production implementation of robot.Gateway. Buttons
// are polled on a dedicated goroutine (the event source of the button
// dispatch path); everything else is a blocking call with no state.
type Gateway struct {
	gpio    gpio.Driver
	drive   *motor.Drive
	ranger  *ultrasonic.Sensor
	lights  *underlight.Strip
	backend camera.Backend
	buf     *camera.Buffer
	cfg     Config

	sinkMu sync.RWMutex
	sink   robot.ButtonEvents

	stopPoll chan struct{}
	pollDone chan struct{}
	closeMu  sync.Mutex
	closed   bool
}

// New builds the gateway, configures all pins, and starts the button
// poll goroutine.
func New(g gpio.Driver, lights *underlight.Strip, backend camera.Backend, cfg Config) *Gateway {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 10 * time.Millisecond
	}
	if cfg.Ultrasonic.Timeout <= 0 {
		cfg.Ultrasonic.Timeout = 30 * time.Millisecond
	}

	for _, b := range cfg.Buttons {
		// Buttons short to ground when pressed.
		_ = g.SetupPin(b.Pin, gpio.InputPullUp)
		_ = g.SetupPin(b.LEDPin, gpio.Output)
		_ = g.WritePWM(b.LEDPin, 0)
	}

	gw := &Gateway{
		gpio:     g,
		drive:    motor.NewDrive(g, cfg.Motors),
		ranger:   ultrasonic.NewSensor(g, cfg.Ultrasonic.TriggerPin, cfg.Ultrasonic.EchoPin, cfg.Ultrasonic.Timeout),
		lights:   lights,
		backend:  backend,
		buf:      camera.NewBuffer(),
		cfg:      cfg,
		stopPoll: make(chan struct{}),
		pollDone: make(chan struct{}),
	}
	go gw.pollButtons()
	return gw
}

// --- Motors ---

func (gw *Gateway) SetMotorSpeeds(left, right float64) error {
	return gw.drive.SetSpeeds(left, right)
}

// --- Sensor ---

func (gw *Gateway) ReadDistance() (float64, error) {
	return gw.ranger.ReadDistance()
}

// --- Buttons ---

func (gw *Gateway) ReadButton(id int) (bool, error) {
	if id < 0 || id >= len(gw.cfg.Buttons) {
		return false, fmt.Errorf("button id out of range: %d", id)
	}
	level, err := gw.gpio.ReadPin(gw.cfg.Buttons[id].Pin)
	if err != nil {
		return false, err
	}
	return level == gpio.Low, nil // active low
}

func (gw *Gateway) SetButtonLED(id int, level float64) error {
	if id < 0 || id >= len(gw.cfg.Buttons) {
		return fmt.Errorf("button id out of range: %d", id)
	}
	return gw.gpio.WritePWM(gw.cfg.Buttons[id].LEDPin, level)
}

func (gw *Gateway) RegisterButtonObserver(sink robot.ButtonEvents) {
	gw.sinkMu.Lock()
	gw.sink = sink
	gw.sinkMu.Unlock()
}

// pollButtons watches the four inputs and reports level transitions to
// the registered sink. The poll period is the debounce window: a bounce
// shorter than one period is never observed.
func (gw *Gateway) pollButtons() {
	defer close(gw.pollDone)

	var last [4]bool
	ticker := time.NewTicker(gw.cfg.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-gw.stopPoll:
			return
		case <-ticker.C:
		}

		for id := range gw.cfg.Buttons {
			pressed, err := gw.ReadButton(id)
			if err != nil {
				debug.Error(err)
				continue
			}
			if pressed == last[id] {
				continue
			}
			last[id] = pressed

			gw.sinkMu.RLock()
			sink := gw.sink
			gw.sinkMu.RUnlock()
			if sink == nil {
				continue
			}
			if pressed {
				err = sink.NotifyPressed(id)
			} else {
				err = sink.NotifyReleased(id)
			}
			if err != nil {
				debug.Error(err)
			}
		}
	}
}

// --- Underlighting ---

func (gw *Gateway) SetUnderlight(light, r, g, b int) error {
	return gw.lights.Set(light, r, g, b)
}

func (gw *Gateway) FillUnderlighting(r, g, b int) error {
	return gw.lights.Fill(r, g, b)
}

func (gw *Gateway) ClearUnderlighting() error {
	return gw.lights.Clear()
}

// --- Camera ---

// AcquireFrameBuffer lends the shared buffer and starts the capture
// stream. The buffer's single-owner borrow makes a second acquisition
// fail until the first is released.
func (gw *Gateway) AcquireFrameBuffer() (*camera.Handle, error) {
	h, err := gw.buf.Lend()
	if err != nil {
		return nil, err
	}
	if err := gw.backend.StartStream(gw.buf); err != nil {
		gw.buf.Revoke(h)
		return nil, err
	}
	return h, nil
}

// ReleaseFrameBuffer stops the stream and ends the borrow.
func (gw *Gateway) ReleaseFrameBuffer(h *camera.Handle) error {
	gw.backend.StopStream()
	gw.buf.Revoke(h)
	return nil
}

func (gw *Gateway) CaptureVideo(path string, seconds int) error {
	return gw.backend.CaptureVideo(path, seconds)
}

// Close stops the poll goroutine, parks the motors, clears the lights,
// and releases the GPIO map.
func (gw *Gateway) Close() error {
	gw.closeMu.Lock()
	defer gw.closeMu.Unlock()
	if gw.closed {
		return nil
	}
	gw.closed = true

	close(gw.stopPoll)
	<-gw.pollDone

	gw.backend.StopStream()
	_ = gw.drive.Stop()
	if err := gw.lights.Close(); err != nil {
		debug.Error(err)
	}
	return gw.gpio.Close()
}

var _ robot.Gateway = (*Gateway)(nil)
