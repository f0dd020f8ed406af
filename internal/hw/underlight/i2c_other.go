//go:build !linux

package underlight

import "errors"

// OpenBus requires the Linux i2c-dev interface.
func OpenBus(bus int, addr byte) (Bus, error) {
	return nil, errors.New("i2c underlighting is only supported on linux")
}
