package sim

import (
	"fmt"
	"math"
)

// picosPerNs is the resolution at which periods are compared. Periods are
// given in floating point nanoseconds, so they are snapped to whole
// picoseconds before checking divisibility.
const picosPerNs = 1000

// A CycleConverter translates cycle counts of a slow clock domain (the
// memory engine) into cycle counts of a fast clock domain (the processor).
// The engine period must be an exact integer multiple of the processor
// period.
type CycleConverter struct {
	enginePeriodNs    float64
	processorPeriodNs float64
	multiplier        uint64
}

// NewCycleConverter validates the two periods and computes the multiplier.
func NewCycleConverter(
	enginePeriodNs, processorPeriodNs float64,
) (CycleConverter, error) {
	engineps, err := periodInPicos(enginePeriodNs)
	if err != nil {
		return CycleConverter{}, fmt.Errorf("engine cycle period: %w", err)
	}

	processorps, err := periodInPicos(processorPeriodNs)
	if err != nil {
		return CycleConverter{}, fmt.Errorf("processor cycle period: %w", err)
	}

	if engineps%processorps != 0 {
		return CycleConverter{}, fmt.Errorf(
			"engine cycle period %gns is not an integral multiple of "+
				"processor cycle period %gns",
			enginePeriodNs, processorPeriodNs)
	}

	c := CycleConverter{
		enginePeriodNs:    enginePeriodNs,
		processorPeriodNs: processorPeriodNs,
		multiplier:        engineps / processorps,
	}

	return c, nil
}

func periodInPicos(ns float64) (uint64, error) {
	if math.IsNaN(ns) || math.IsInf(ns, 0) || ns <= 0 {
		return 0, fmt.Errorf("period must be positive, got %g", ns)
	}

	ps := math.Round(ns * picosPerNs)
	if ps < 1 {
		return 0, fmt.Errorf("period %gns is below 1ps", ns)
	}

	return uint64(ps), nil
}

// Multiplier returns how many processor cycles fit in one engine cycle.
func (c CycleConverter) Multiplier() uint64 {
	return c.multiplier
}

// EnginePeriodNs returns the engine cycle period.
func (c CycleConverter) EnginePeriodNs() float64 {
	return c.enginePeriodNs
}

// ProcessorPeriodNs returns the processor cycle period.
func (c CycleConverter) ProcessorPeriodNs() float64 {
	return c.processorPeriodNs
}

// ToProcessorCycles converts engine cycles to processor cycles.
func (c CycleConverter) ToProcessorCycles(engineCycles uint64) uint64 {
	return engineCycles * c.multiplier
}
