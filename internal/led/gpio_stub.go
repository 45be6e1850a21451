//go:build !linux

package led

import "fmt"

// Stub implementation for non-Linux platforms.
func openGPIO(chipPath string, offset int) (driver, error) {
	return nil, fmt.Errorf("led: gpio unsupported on this platform")
}

var openGPIOFn = openGPIO
