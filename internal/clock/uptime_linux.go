//go:build linux

package clock

import (
	"time"

	"golang.org/x/sys/unix"
)

func uptime() time.Duration {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return time.Since(processStart)
	}
	return time.Duration(info.Uptime) * time.Second
}
