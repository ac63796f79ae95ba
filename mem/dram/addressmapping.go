package dram

// location is where an address lives inside the memory system.
type location struct {
	channel int
	rank    int
	bank    int
	row     uint64
}

// addressMapper interleaves bursts across channels first, then fills a row
// before moving to the next bank and rank.
type addressMapper struct {
	capacity     uint64
	burstBytes   uint64
	numChannels  uint64
	burstsPerRow uint64
	numBanks     uint64
	numRanks     uint64
	numRows      uint64
}

func newAddressMapper(cfg Config, capacity uint64) addressMapper {
	return addressMapper{
		capacity:     capacity,
		burstBytes:   cfg.BurstBytes(),
		numChannels:  uint64(cfg.System.NumChannels),
		burstsPerRow: uint64(cfg.Device.NumCols / cfg.Device.BL),
		numBanks:     uint64(cfg.Device.NumBanks),
		numRanks:     uint64(cfg.System.NumRanks),
		numRows:      uint64(cfg.Device.NumRows),
	}
}

func (m addressMapper) locate(addr uint64) location {
	if m.capacity > 0 {
		addr %= m.capacity
	}

	n := addr / m.burstBytes

	loc := location{}
	loc.channel = int(n % m.numChannels)
	n /= m.numChannels
	n /= m.burstsPerRow
	loc.bank = int(n % m.numBanks)
	n /= m.numBanks
	loc.rank = int(n % m.numRanks)
	n /= m.numRanks
	loc.row = n % m.numRows

	return loc
}
