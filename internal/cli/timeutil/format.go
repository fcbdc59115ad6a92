// Package timeutil formats timestamps for CLI output.
package timeutil

import (
	"fmt"
	"time"
)

// LocalTimeFormat renders times in the user's zone, e.g. "Mon Jan 2 15:04:05 2006".
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatTime renders t in local time. The zero time renders as "never".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(LocalTimeFormat)
}

// FormatAge renders how long before now t happened, e.g. "3m12s ago".
// The zero time renders as "never".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	if d < time.Second {
		return "just now"
	}
	return FormatDuration(d) + " ago"
}

// FormatDuration renders d with its two largest units: "2d4h", "5h3m",
// "3m12s" or "42s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
