package underlight

import (
	"fmt"
	"math"

	"github.com/swiftbotics/swiftbot/internal/debug"
)

// SN3218 register map.
const (
	regShutdown = 0x00 // 0 = software shutdown, 1 = normal operation
	regPWMBase  = 0x01 // 18 channel PWM registers, 0x01..0x12
	regEnable   = 0x13 // 3 channel-enable bitmask registers
	regUpdate   = 0x16 // write any value to latch PWM/enable registers
	regReset    = 0x17 // write any value to reset all registers
)

// DefaultAddress is the SN3218's fixed 7-bit I2C address.
const DefaultAddress = 0x54

// Channels is the number of PWM outputs on the SN3218.
const Channels = 18

// Lights is the number of RGB underlights (three channels each).
const Lights = Channels / 3

// Bus is the minimal I2C access the driver needs. The real
// implementation talks to /dev/i2c-*; tests substitute a fake.
type Bus interface {
	// WriteReg writes data to consecutive registers starting at reg.
	WriteReg(reg byte, data []byte) error
	Close() error
}

// Strip drives the SwiftBot's six RGB underlights through an SN3218
// 18-channel LED controller.
type Strip struct {
	bus   Bus
	pwm   [Channels]byte
	gamma [256]byte
}

// NewStrip resets the controller, enables all channels, and returns a
// strip with every light off.
func NewStrip(bus Bus) (*Strip, error) {
	s := &Strip{bus: bus}

	// Perceptual brightness curve; raw PWM values look badly skewed
	// toward the bright end.
	for i := 0; i < 256; i++ {
		s.gamma[i] = byte(math.Round(255.0 * math.Pow(float64(i)/255.0, 2.8)))
	}

	if err := bus.WriteReg(regReset, []byte{0xff}); err != nil {
		return nil, fmt.Errorf("reset SN3218: %w", err)
	}
	if err := bus.WriteReg(regShutdown, []byte{0x01}); err != nil {
		return nil, fmt.Errorf("wake SN3218: %w", err)
	}
	if err := bus.WriteReg(regEnable, []byte{0x3f, 0x3f, 0x3f}); err != nil {
		return nil, fmt.Errorf("enable SN3218 channels: %w", err)
	}
	if err := s.flush(); err != nil {
		return nil, err
	}

	debug.Info("SN3218 underlighting initialized (%d lights)", Lights)
	return s, nil
}

// Set sets one underlight to the given color. Channel values are
// clamped to [0, 255].
func (s *Strip) Set(light, r, g, b int) error {
	if light < 0 || light >= Lights {
		return fmt.Errorf("underlight id out of range: %d (have %d lights)", light, Lights)
	}
	base := light * 3
	s.pwm[base] = s.gamma[clampByte(r)]
	s.pwm[base+1] = s.gamma[clampByte(g)]
	s.pwm[base+2] = s.gamma[clampByte(b)]
	return s.flush()
}

// Fill sets every underlight to the same color.
func (s *Strip) Fill(r, g, b int) error {
	gr, gg, gb := s.gamma[clampByte(r)], s.gamma[clampByte(g)], s.gamma[clampByte(b)]
	for i := 0; i < Lights; i++ {
		s.pwm[i*3] = gr
		s.pwm[i*3+1] = gg
		s.pwm[i*3+2] = gb
	}
	return s.flush()
}

// Clear turns every underlight off.
func (s *Strip) Clear() error {
	s.pwm = [Channels]byte{}
	return s.flush()
}

// Close clears the strip and releases the bus.
func (s *Strip) Close() error {
	_ = s.Clear()
	return s.bus.Close()
}

// flush writes all PWM registers and latches them.
func (s *Strip) flush() error {
	if err := s.bus.WriteReg(regPWMBase, s.pwm[:]); err != nil {
		return fmt.Errorf("write SN3218 pwm: %w", err)
	}
	if err := s.bus.WriteReg(regUpdate, []byte{0xff}); err != nil {
		return fmt.Errorf("latch SN3218: %w", err)
	}
	return nil
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
