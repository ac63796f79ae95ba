package dram

// A transaction is a read or a write waiting in, or issued from, a channel
// queue.
type transaction struct {
	id      uint64
	isWrite bool
	addr    uint64
	loc     location
	addedAt uint64
	doneAt  uint64
}

// A channel owns a transaction queue, the banks of all its ranks, and a data
// bus shared by them.
type channel struct {
	cfg Config

	queue         []*transaction
	banks         []bank
	busFreeAt     uint64
	nextRefreshAt []uint64
}

func newChannel(cfg Config) *channel {
	c := &channel{
		cfg:           cfg,
		banks:         make([]bank, cfg.System.NumRanks*cfg.Device.NumBanks),
		nextRefreshAt: make([]uint64, cfg.System.NumRanks),
	}

	for i := range c.banks {
		c.banks[i].openRow = noOpenRow
	}

	for r := range c.nextRefreshAt {
		c.nextRefreshAt[r] = uint64(c.cfg.Device.TREFI)
	}

	return c
}

func (c *channel) push(t *transaction) {
	c.queue = append(c.queue, t)
}

func (c *channel) bankOf(loc location) *bank {
	return &c.banks[loc.rank*c.cfg.Device.NumBanks+loc.bank]
}

// refresh refreshes every rank whose refresh interval has elapsed. It
// returns the number of ranks refreshed.
func (c *channel) refresh(now uint64) int {
	if c.cfg.Device.TREFI == 0 {
		return 0
	}

	n := 0

	for r := range c.nextRefreshAt {
		if now < c.nextRefreshAt[r] {
			continue
		}

		for b := 0; b < c.cfg.Device.NumBanks; b++ {
			c.banks[r*c.cfg.Device.NumBanks+b].refresh(now, c.cfg.Device.TRFC)
		}

		c.nextRefreshAt[r] += uint64(c.cfg.Device.TREFI)
		n++
	}

	return n
}

// issue starts the oldest queued transaction whose bank is ready. It returns
// nil if no transaction can start at this cycle.
func (c *channel) issue(now uint64, counters *powerCounters) *transaction {
	for i, t := range c.queue {
		b := c.bankOf(t.loc)
		if !b.isReady(now) {
			continue
		}

		c.queue = append(c.queue[:i], c.queue[i+1:]...)
		c.start(now, t, b, counters)

		return t
	}

	return nil
}

func (c *channel) start(
	now uint64,
	t *transaction,
	b *bank,
	counters *powerCounters,
) {
	d := c.cfg.Device
	columnAt := now

	switch b.state(t.loc.row) {
	case rowClosed:
		b.activatedAt = now
		columnAt = now + uint64(d.TRCD)
		counters.activates++
	case rowConflict:
		prechargeAt := max(now, b.activatedAt+uint64(d.TRAS))
		b.activatedAt = prechargeAt + uint64(d.TRP)
		columnAt = b.activatedAt + uint64(d.TRCD)
		counters.activates++
	}

	casLatency := d.AL + d.CL
	if t.isWrite {
		casLatency = d.AL + d.CWL
	}

	dataAt := max(columnAt+uint64(casLatency), c.busFreeAt)
	t.doneAt = dataAt + uint64(d.BL/2)
	c.busFreeAt = t.doneAt

	if t.isWrite {
		b.readyAt = t.doneAt + uint64(d.TWR)
		counters.writeBursts++
	} else {
		b.readyAt = max(t.doneAt, columnAt+uint64(d.AL+d.TRTP))
		counters.readBursts++
	}

	b.openRow = int64(t.loc.row)
	if c.cfg.System.RowBufferPolicy == ClosePage {
		b.readyAt += uint64(d.TRP)
		b.openRow = noOpenRow
	}
}
