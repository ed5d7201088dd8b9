package host

import (
	"time"

	"golang.org/x/sys/unix"
)

// uptime is the time since boot.
func uptime(started time.Time) time.Duration {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return time.Since(started)
	}
	return time.Duration(info.Uptime) * time.Second
}
