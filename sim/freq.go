package sim

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// FreqFromPeriodNs returns the frequency whose period is the given number of
// nanoseconds.
func FreqFromPeriodNs(ns float64) Freq {
	if ns <= 0 || math.IsNaN(ns) {
		log.Panicf("invalid period %f ns", ns)
	}

	return Freq(1e9 / ns)
}

// PeriodNs returns the time between two consecutive ticks in nanoseconds.
func (f Freq) PeriodNs() float64 {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return 1e9 / float64(f)
}
