package underlight

import "github.com/swiftbotics/swiftbot/internal/debug"

// MockBus is a Bus that only logs, for development off the robot.
type MockBus struct{}

func (MockBus) WriteReg(reg byte, data []byte) error {
	debug.I2C(DefaultAddress, reg, len(data))
	return nil
}

func (MockBus) Close() error { return nil }
