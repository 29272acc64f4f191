package timeutil

import (
	"time"
	_ "time/tzdata"
)

// Display is the location used when rendering times for people (certificates,
// export names). Timestamps are always stored in UTC.
var Display = time.UTC

// SetDisplayLocation switches Display to the named IANA zone.
func SetDisplayLocation(name string) error {
	if name == "" {
		Display = time.UTC
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Display = loc
	return nil
}

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// FormatDisplay formats t in the display location
func FormatDisplay(t time.Time, layout string) string {
	return t.In(Display).Format(layout)
}

// Common layouts
const (
	DateLayout    = "2006-01-02"
	DisplayLayout = "02 Jan 2006, 03:04 PM"
	StampLayout   = "20060102T150405Z"
)
