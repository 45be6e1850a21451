//go:build linux

package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openGPIO claims a GPIO line as a digital output via the Linux GPIO
// character device (libgpiod).
func openGPIO(chipPath string, offset int) (driver, error) {
	if offset < 0 {
		return nil, fmt.Errorf("led: invalid gpio line %d", offset)
	}

	candidates := []string{chipPath}
	if chipPath == "" {
		// Probe likely chips; Pi kernel variants expose header GPIOs on
		// gpiochip0 and sometimes gpiochip4.
		candidates = []string{"/dev/gpiochip0", "/dev/gpiochip4"}
		entries, _ := os.ReadDir("/dev")
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, "gpiochip") {
				candidates = append(candidates, filepath.Join("/dev", name))
			}
		}
	}

	for _, path := range candidates {
		chip, err := gpiocdev.NewChip(path)
		if err != nil {
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("wips-led"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodLED{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("led: gpio line %d not found (or busy)", offset)
}

var openGPIOFn = openGPIO

type gpiodLED struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLED) Set(on bool) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("led: gpio driver not initialized")
	}
	v := 0
	if on {
		v = 1
	}
	return g.line.SetValue(v)
}

func (g *gpiodLED) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	err1 := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err1
}
