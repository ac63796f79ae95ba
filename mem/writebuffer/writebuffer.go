// Package writebuffer provides a fixed-capacity pool of pending write
// descriptors that lets a processor issue writes without waiting for the
// memory to commit them.
//
// The buffer is not a queue. Slots are scanned in index order and the first
// free or occupied slot is used, so buffered writes carry no FIFO guarantee.
package writebuffer

import (
	"fmt"
	"io"
	"log"
)

// Entry describes a buffered write. A Size of 0 marks a free slot.
type Entry struct {
	Addr uint64
	Size uint64
}

// IsFree returns true if the slot does not hold a write.
func (e Entry) IsFree() bool {
	return e.Size == 0
}

// Buffer is the write absorption buffer.
type Buffer struct {
	capacityBytes uint64
	occupiedBytes uint64
	entries       []Entry
}

// New creates a buffer that can hold up to numEntries writes and
// capacityBytes bytes. A buffer with zero capacity or zero entries is
// disabled.
func New(capacityBytes uint64, numEntries int) *Buffer {
	if numEntries < 0 {
		log.Panicf("number of write buffer entries cannot be %d", numEntries)
	}

	return &Buffer{
		capacityBytes: capacityBytes,
		entries:       make([]Entry, numEntries),
	}
}

// Enabled returns false if the buffer cannot hold anything.
func (b *Buffer) Enabled() bool {
	return b.capacityBytes > 0 && len(b.entries) > 0
}

// CapacityBytes returns the number of bytes the buffer can hold.
func (b *Buffer) CapacityBytes() uint64 {
	return b.capacityBytes
}

// OccupiedBytes returns the number of bytes currently buffered.
func (b *Buffer) OccupiedBytes() uint64 {
	return b.occupiedBytes
}

// NumEntries returns the number of slots.
func (b *Buffer) NumEntries() int {
	return len(b.entries)
}

// NumOccupied returns the number of slots holding a write.
func (b *Buffer) NumOccupied() int {
	n := 0

	for _, e := range b.entries {
		if !e.IsFree() {
			n++
		}
	}

	return n
}

// Entries returns a copy of all the slots in scan order.
func (b *Buffer) Entries() []Entry {
	entries := make([]Entry, len(b.entries))
	copy(entries, b.entries)

	return entries
}

// FindFreeEntry returns the index of the first free slot if the buffer also
// has size bytes of room left. The second return value is false when the
// write cannot be absorbed now.
func (b *Buffer) FindFreeEntry(size uint64) (int, bool) {
	if b.capacityBytes-b.occupiedBytes < size {
		return -1, false
	}

	for i, e := range b.entries {
		if e.IsFree() {
			return i, true
		}
	}

	return -1, false
}

// Reserve records a write in the slot at index i.
func (b *Buffer) Reserve(i int, addr, size uint64) {
	if i < 0 || i >= len(b.entries) {
		log.Panicf("write buffer slot %d out of range", i)
	}

	if size == 0 {
		log.Panic("cannot buffer a write of 0 bytes")
	}

	if !b.entries[i].IsFree() {
		log.Panicf("write buffer slot %d is already occupied", i)
	}

	if b.capacityBytes-b.occupiedBytes < size {
		log.Panicf("write buffer overflow, %d bytes free, %d requested",
			b.capacityBytes-b.occupiedBytes, size)
	}

	b.entries[i] = Entry{Addr: addr, Size: size}
	b.occupiedBytes += size
}

// Release frees the first occupied slot that holds addr. It returns the
// released entry and false if no slot holds addr.
func (b *Buffer) Release(addr uint64) (Entry, bool) {
	for i, e := range b.entries {
		if e.IsFree() || e.Addr != addr {
			continue
		}

		b.occupiedBytes -= e.Size
		b.entries[i] = Entry{}

		return e, true
	}

	return Entry{}, false
}

// PickDrainCandidate returns the first occupied slot in scan order. The
// second return value is false if the buffer is empty.
func (b *Buffer) PickDrainCandidate() (Entry, bool) {
	if b.occupiedBytes == 0 {
		return Entry{}, false
	}

	for _, e := range b.entries {
		if !e.IsFree() {
			return e, true
		}
	}

	log.Panicf("write buffer holds %d bytes but no occupied slot",
		b.occupiedBytes)

	return Entry{}, false
}

// Print dumps every slot, one per line.
func (b *Buffer) Print(w io.Writer) {
	for i, e := range b.entries {
		fmt.Fprintf(w, "entry %d: address 0x%x, size %d\n", i, e.Addr, e.Size)
	}

	fmt.Fprintf(w, "occupancy %d/%d bytes\n", b.occupiedBytes, b.capacityBytes)
}
