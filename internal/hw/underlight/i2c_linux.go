//go:build linux

package underlight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/swiftbotics/swiftbot/internal/debug"
)

// i2cSlave is the I2C_SLAVE ioctl request from linux/i2c-dev.h.
const i2cSlave = 0x0703

// devBus talks to a character device like /dev/i2c-1.
type devBus struct {
	f    *os.File
	addr byte
}

// OpenBus opens the numbered I2C bus and selects the given slave address.
func OpenBus(bus int, addr byte) (Bus, error) {
	path := fmt.Sprintf("/dev/i2c-%d", bus)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(addr)); err != nil {
		f.Close()
		return nil, fmt.Errorf("select i2c slave 0x%02x: %w", addr, err)
	}
	debug.Info("I2C bus %d open, slave 0x%02x", bus, addr)
	return &devBus{f: f, addr: addr}, nil
}

func (b *devBus) WriteReg(reg byte, data []byte) error {
	debug.I2C(b.addr, reg, len(data))
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, reg)
	buf = append(buf, data...)
	if _, err := b.f.Write(buf); err != nil {
		return fmt.Errorf("i2c write reg 0x%02x: %w", reg, err)
	}
	return nil
}

func (b *devBus) Close() error {
	return b.f.Close()
}
