// Package clock provides the injectable time source used across the crawl
// pipeline.
package clock

import "time"

// System returns the real current time in UTC.
type System struct{}

// Now implements crawl.Clock.
func (System) Now() time.Time {
	return time.Now().UTC()
}

// Fixed always returns the same instant; for tests.
type Fixed struct {
	T time.Time
}

// Now implements crawl.Clock.
func (f Fixed) Now() time.Time {
	return f.T
}
