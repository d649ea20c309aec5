/*

This file contains the clock contract. The host environment provides a
monotonic non-decreasing clock; the engine reads it once per external call and
treats the value as constant for the duration of that call. Tests substitute a
manual clock.

*/

package types

import "time"

type Clock interface {
	// Now returns the current time as Unix seconds.
	Now() int64
}

// SystemClock reads the OS wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// ManualClock is a settable clock for tests and simulations.
type ManualClock struct {
	Current int64
}

func (c *ManualClock) Now() int64 {
	return c.Current
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d int64) {
	c.Current += d
}
