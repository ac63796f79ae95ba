package dramifc

// Stats counts what the bridge has done since it was built.
type Stats struct {
	Reads               uint64 `json:"reads"`
	Writes              uint64 `json:"writes"`
	BufferedWrites      uint64 `json:"buffered_writes"`
	StalledWrites       uint64 `json:"stalled_writes"`
	UntimedWrites       uint64 `json:"untimed_writes"`
	ReadCycles          uint64 `json:"read_cycles"`
	WriteStallCycles    uint64 `json:"write_stall_cycles"`
	WriteSubmissions    uint64 `json:"write_submissions"`
	DrainSubmissions    uint64 `json:"drain_submissions"`
	WriteCompletions    uint64 `json:"write_completions"`
	UnknownCompletions  uint64 `json:"unknown_completions"`
	Ticks               uint64 `json:"ticks"`
	WriteBufferOccupied uint64 `json:"write_buffer_occupied"`
	WriteBufferCapacity uint64 `json:"write_buffer_capacity"`
}

// AvgReadLatency returns the average read latency in memory cycles.
func (s Stats) AvgReadLatency() float64 {
	if s.Reads == 0 {
		return 0
	}

	return float64(s.ReadCycles) / float64(s.Reads)
}
