package domain

import "time"

// MaxLockoutEnd marks an account as disabled rather than temporarily locked.
// Microsecond precision so the value survives a postgres round trip.
var MaxLockoutEnd = time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)

const (
	StatusActive   = "Active"
	StatusDisabled = "Disabled"

	lockoutTimeLayout = "1/2/2006 3:04 PM"
)

// IsDisabled reports whether end is the disabled sentinel. Drivers that store
// coarser timestamps truncate the fraction, so only whole seconds compare.
func IsDisabled(end *time.Time) bool {
	if end == nil {
		return false
	}
	return !end.UTC().Before(MaxLockoutEnd.Truncate(time.Second))
}

// IsLockedOut reports whether end lies in the future relative to now.
func IsLockedOut(end *time.Time, now time.Time) bool {
	return end != nil && end.After(now)
}

// AccountStatus renders the lockout column shown on the users pages.
func AccountStatus(end *time.Time, now time.Time) string {
	switch {
	case IsDisabled(end):
		return StatusDisabled
	case IsLockedOut(end, now):
		return "Locked Out (until " + end.UTC().Format(lockoutTimeLayout) + ")"
	default:
		return StatusActive
	}
}
