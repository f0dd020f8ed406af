package ultrasonic

import (
	"fmt"
	"time"

	"github.com/swiftbotics/swiftbot/internal/debug"
	"github.com/swiftbotics/swiftbot/internal/hw/gpio"
)

// speedOfSoundCmPerSec at ~20°C. The echo travels out and back, so the
// measured pulse covers twice the distance.
const speedOfSoundCmPerSec = 34300.0

// Sensor reads distances from an HC-SR04-style ultrasonic ranger:
// a 10µs pulse on the trigger line, distance proportional to the width
// of the echo pulse.
type Sensor struct {
	gpio       gpio.Driver
	triggerPin int
	echoPin    int
	timeout    time.Duration
}

// NewSensor configures the trigger/echo pins and returns a sensor.
// timeout bounds the wait for the echo pulse; 30ms covers the sensor's
// ~4m maximum range with margin.
func NewSensor(g gpio.Driver, triggerPin, echoPin int, timeout time.Duration) *Sensor {
	_ = g.SetupPin(triggerPin, gpio.Output)
	_ = g.SetupPin(echoPin, gpio.Input)
	_ = g.WritePin(triggerPin, gpio.Low)

	if timeout <= 0 {
		timeout = 30 * time.Millisecond
	}

	return &Sensor{
		gpio:       g,
		triggerPin: triggerPin,
		echoPin:    echoPin,
		timeout:    timeout,
	}
}

// ReadDistance fires one ping and returns the distance in centimetres.
// A missing echo (nothing in range, or disconnected sensor) is an error,
// never a made-up reading.
func (s *Sensor) ReadDistance() (float64, error) {
	// 10µs trigger pulse
	if err := s.gpio.WritePin(s.triggerPin, gpio.High); err != nil {
		return 0, err
	}
	time.Sleep(10 * time.Microsecond)
	if err := s.gpio.WritePin(s.triggerPin, gpio.Low); err != nil {
		return 0, err
	}

	start, err := s.waitForEcho(gpio.High)
	if err != nil {
		return 0, fmt.Errorf("echo start: %w", err)
	}
	end, err := s.waitForEcho(gpio.Low)
	if err != nil {
		return 0, fmt.Errorf("echo end: %w", err)
	}

	pulse := end.Sub(start)
	distance := pulse.Seconds() * speedOfSoundCmPerSec / 2.0

	debug.Verbose("Ultrasonic: pulse=%v distance=%.1fcm", pulse, distance)
	return distance, nil
}

// waitForEcho busy-polls the echo pin until it reaches the wanted level.
func (s *Sensor) waitForEcho(want gpio.Level) (time.Time, error) {
	deadline := time.Now().Add(s.timeout)
	for {
		level, err := s.gpio.ReadPin(s.echoPin)
		if err != nil {
			return time.Time{}, err
		}
		now := time.Now()
		if level == want {
			return now, nil
		}
		if now.After(deadline) {
			return time.Time{}, fmt.Errorf("timeout after %v waiting for echo level %v", s.timeout, want)
		}
	}
}
