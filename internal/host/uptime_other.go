//go:build !linux

package host

import "time"

// uptime falls back to the time since the server started.
func uptime(started time.Time) time.Duration {
	return time.Since(started)
}
