package engine

import "time"

// Clock abstracts the passage of simulated time so tests can substitute a
// controlled implementation instead of sleeping for real.
type Clock interface {
	Sleep(d time.Duration)
}

// RealClock sleeps on the wall clock.
type RealClock struct{}

func (RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}
