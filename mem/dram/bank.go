package dram

const noOpenRow = -1

// A bank tracks the open row and when it can take the next access.
type bank struct {
	openRow     int64
	readyAt     uint64
	activatedAt uint64
}

// rowState classifies an access against the row buffer.
type rowState int

const (
	rowHit rowState = iota
	rowClosed
	rowConflict
)

func (b *bank) state(row uint64) rowState {
	switch b.openRow {
	case int64(row):
		return rowHit
	case noOpenRow:
		return rowClosed
	default:
		return rowConflict
	}
}

func (b *bank) isReady(now uint64) bool {
	return b.readyAt <= now
}

// refresh closes the row and blocks the bank until the refresh is over.
func (b *bank) refresh(now uint64, tRFC int) {
	start := max(now, b.readyAt)
	b.readyAt = start + uint64(tRFC)
	b.openRow = noOpenRow
}
