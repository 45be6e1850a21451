// Package led drives a status LED: a short blink after every
// successful report cycle, solid off while there is no valid fix.
package led

import "time"

const blinkDuration = 100 * time.Millisecond

// driver is a digital output line; tests and non-GPIO platforms
// substitute a fake.
type driver interface {
	Set(on bool) error
	Close() error
}

type LED struct {
	drv driver
}

// Open claims the GPIO line. An empty chip probes the usual gpiochip
// device names.
func Open(chip string, line int) (*LED, error) {
	drv, err := openGPIOFn(chip, line)
	if err != nil {
		return nil, err
	}
	return &LED{drv: drv}, nil
}

// Blink pulses the LED once, blocking for the blink duration.
func (l *LED) Blink() error {
	if err := l.drv.Set(true); err != nil {
		return err
	}
	time.Sleep(blinkDuration)
	return l.drv.Set(false)
}

func (l *LED) Off() error {
	return l.drv.Set(false)
}

func (l *LED) Close() error {
	_ = l.drv.Set(false)
	return l.drv.Close()
}
