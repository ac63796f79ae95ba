package dram

import "github.com/sarchlab/dramifc/mem"

// powerCounters accumulates the commands issued during a power epoch.
type powerCounters struct {
	activates   uint64
	readBursts  uint64
	writeBursts uint64
	refreshes   uint64
}

// powerSample converts the counters of an epoch of the given length into
// average power in mW.
func (c powerCounters) powerSample(cfg Config, cycles uint64) mem.PowerSample {
	if cycles == 0 {
		return mem.PowerSample{}
	}

	d := cfg.Device
	devices := float64(cfg.devicesPerRank())
	ranks := float64(cfg.System.NumRanks * cfg.System.NumChannels)
	perCycle := d.Vdd * devices / float64(cycles)
	burstCycles := float64(d.BL / 2)

	return mem.PowerSample{
		Background: d.IDD2N * d.Vdd * devices * ranks,
		Burst: perCycle * burstCycles *
			((d.IDD4R-d.IDD2N)*float64(c.readBursts) +
				(d.IDD4W-d.IDD2N)*float64(c.writeBursts)),
		Refresh: perCycle * (d.IDD5 - d.IDD2N) *
			float64(d.TRFC) * float64(c.refreshes),
		ActPre: perCycle * (d.IDD0 - d.IDD2N) *
			float64(d.TRAS+d.TRP) * float64(c.activates),
	}
}
