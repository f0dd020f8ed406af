package motor

import (
	"github.com/swiftbotics/swiftbot/internal/debug"
	"github.com/swiftbotics/swiftbot/internal/hw/gpio"
)

// PinPair drives one DC motor through an H-bridge: one PWM line per
// direction. Energizing ForwardPin spins the wheel forward, ReversePin
// backward; both at zero coasts.
type PinPair struct {
	ForwardPin int
	ReversePin int
}

// Config holds the hardware configuration for the drive train.
type Config struct {
	Left  PinPair
	Right PinPair
}

// Drive controls the robot's two DC motors. Speeds are normalized to
// [-1.0, 1.0]; out-of-range values are clamped rather than rejected so a
// controller overshooting slightly never stalls the loop.
type Drive struct {
	gpio gpio.Driver
	cfg  Config
}

// NewDrive creates a dual motor drive and parks both motors.
func NewDrive(g gpio.Driver, cfg Config) *Drive {
	for _, pin := range []int{cfg.Left.ForwardPin, cfg.Left.ReversePin, cfg.Right.ForwardPin, cfg.Right.ReversePin} {
		_ = g.SetupPin(pin, gpio.Output)
		_ = g.WritePWM(pin, 0)
	}
	return &Drive{gpio: g, cfg: cfg}
}

// SetSpeeds sets both wheel speeds independently, each in [-1.0, 1.0].
func (d *Drive) SetSpeeds(left, right float64) error {
	left = clamp(left)
	right = clamp(right)

	debug.Live("Motors: left=%.2f right=%.2f", left, right)

	if err := d.setMotor(d.cfg.Left, left); err != nil {
		return err
	}
	return d.setMotor(d.cfg.Right, right)
}

// Stop halts both motors immediately.
func (d *Drive) Stop() error {
	return d.SetSpeeds(0, 0)
}

func (d *Drive) setMotor(p PinPair, speed float64) error {
	fwd, rev := 0.0, 0.0
	if speed >= 0 {
		fwd = speed
	} else {
		rev = -speed
	}
	if err := d.gpio.WritePWM(p.ForwardPin, fwd); err != nil {
		return err
	}
	return d.gpio.WritePWM(p.ReversePin, rev)
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
