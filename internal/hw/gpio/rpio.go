package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
	"github.com/swiftbotics/swiftbot/internal/debug"
)

// pwmCycle is the duty cycle resolution for hardware PWM pins.
const pwmCycle = 100

// pwmFreq is the PWM carrier frequency in Hz; high enough to keep
// DC motors and LEDs out of the audible range.
const pwmFreq = 25000

// RPiDriver is the real implementation for Raspberry Pi using go-rpio.
type RPiDriver struct {
	pins map[int]rpio.Pin
	pwm  map[int]bool // pins switched into hardware PWM mode
}

// NewRPiRealDriver creates a real GPIO driver for Raspberry Pi.
// Requires running on a Raspberry Pi with access to /dev/gpiomem or as root.
func NewRPiRealDriver() (*RPiDriver, error) {
	debug.Info("Initializing real GPIO driver (go-rpio)")

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open GPIO: %w (are you running on a Raspberry Pi?)", err)
	}

	debug.Verbose("GPIO memory mapped successfully")

	return &RPiDriver{
		pins: make(map[int]rpio.Pin),
		pwm:  make(map[int]bool),
	}, nil
}

func (r *RPiDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p := rpio.Pin(pin)
	r.pins[pin] = p

	switch mode {
	case Input:
		p.Input()
		p.PullOff()
	case InputPullUp:
		p.Input()
		p.PullUp()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}

	return nil
}

func (r *RPiDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, ok := r.pins[pin]
	if !ok {
		// Pin not setup yet, setup as output
		if err := r.SetupPin(pin, Output); err != nil {
			return err
		}
		p = r.pins[pin]
	}

	if level == High {
		p.High()
	} else {
		p.Low()
	}

	return nil
}

// pwmCapable reports whether the BCM pin is wired to one of the Pi's
// hardware PWM channels.
func pwmCapable(pin int) bool {
	switch pin {
	case 12, 13, 18, 19:
		return true
	}
	return false
}

func (r *RPiDriver) WritePWM(pin int, duty float64) error {
	debug.GPIO("WritePWM", pin, duty)

	if duty < 0 {
		duty = 0
	}
	if duty > 1 {
		duty = 1
	}

	if !pwmCapable(pin) {
		// No hardware PWM on this pin: treat as binary at 50%.
		if duty >= 0.5 {
			return r.WritePin(pin, High)
		}
		return r.WritePin(pin, Low)
	}

	p := rpio.Pin(pin)
	if !r.pwm[pin] {
		p.Mode(rpio.Pwm)
		p.Freq(pwmFreq * pwmCycle)
		r.pins[pin] = p
		r.pwm[pin] = true
	}
	p.DutyCycle(uint32(duty*pwmCycle+0.5), pwmCycle)
	return nil
}

func (r *RPiDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)

	p, ok := r.pins[pin]
	if !ok {
		// Pin not setup yet, setup as input
		if err := r.SetupPin(pin, Input); err != nil {
			return Low, err
		}
		p = r.pins[pin]
	}

	state := p.Read()
	if state == rpio.High {
		return High, nil
	}
	return Low, nil
}

func (r *RPiDriver) Close() error {
	debug.Trace("GPIO Close (real driver)")

	// Reset all pins to input (safe state)
	for pin, p := range r.pins {
		debug.Verbose("Resetting pin %d to input", pin)
		if r.pwm[pin] {
			p.DutyCycle(0, pwmCycle)
		}
		p.Input()
	}

	return rpio.Close()
}
