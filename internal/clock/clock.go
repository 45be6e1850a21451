// Package clock abstracts the time sources the tracker depends on: the
// wall clock used to timestamp packets and a monotonic uptime used for
// fix aging. Uptime deliberately does not come from the wall clock,
// which may step when NTP converges.
package clock

import "time"

// Clock provides wall-clock time. Trustworthy reports whether the
// source is believed synchronized; encoders skip timestamped output
// when it is not.
type Clock interface {
	Now() time.Time
	Trustworthy() bool
}

// System reads the OS clock and assumes the host keeps it synced.
type System struct{}

func (System) Now() time.Time    { return time.Now().UTC() }
func (System) Trustworthy() bool { return true }

// Uptime returns time since boot where the platform exposes it, or
// time since process start otherwise. Monotonic across clock steps.
func Uptime() time.Duration {
	return uptime()
}

var processStart = time.Now()
