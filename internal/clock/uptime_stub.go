//go:build !linux

package clock

import "time"

func uptime() time.Duration {
	return time.Since(processStart)
}
