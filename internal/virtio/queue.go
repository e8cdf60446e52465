package virtio

import (
	"fmt"

	"github.com/elinos-go/elinos/internal/memory"
)

// Descriptor flag bits (§3 "Virtqueue").
const (
	DescFNext  uint16 = 1
	DescFWrite uint16 = 2
)

const descSize = 16 // addr(8) + len(4) + flags(2) + next(2)

// queue is a split virtqueue: a descriptor table, an available ring,
// and a used ring, carved out of one contiguous device-memory
// allocation (§4.5 "allocates a single contiguous device-memory arena
// for descriptor table, available ring, and used ring").
type queue struct {
	arena *memory.Arena

	size uint32 // power-of-two descriptor count

	descBase  uint64
	availBase uint64
	usedBase  uint64

	nextAvail uint16 // next slot to populate in the available ring
	lastUsed  uint16 // next used-ring slot to reap
}

// availRingOffset/usedRingOffset locate the ring array within their
// region: avail is {flags(2), idx(2), ring[size](2 each)}, used is
// {flags(2), idx(2), ring[size]{id(4),len(4)}}, the used ring aligned
// to 4 bytes per §4.5.
func availRingSize(size uint32) uint64 { return 4 + uint64(size)*2 + 2 }
func usedRingSize(size uint32) uint64  { return 4 + uint64(size)*8 + 2 }

// newQueue carves descriptor table + avail ring + used ring out of
// base..base+len(arena region), zeroing everything first.
func newQueue(arena *memory.Arena, base uint64, size uint32) (*queue, uint64, error) {
	descBase := base
	descBytes := uint64(size) * descSize

	availBase := descBase + descBytes
	availBytes := availRingSize(size)

	usedBase := alignUp4(availBase + availBytes)
	usedBytes := usedRingSize(size)

	total := (usedBase + usedBytes) - base
	if err := arena.Zero(base, total); err != nil {
		return nil, 0, fmt.Errorf("virtio: zeroing queue memory: %w", err)
	}

	q := &queue{
		arena:     arena,
		size:      size,
		descBase:  descBase,
		availBase: availBase,
		usedBase:  usedBase,
	}
	return q, total, nil
}

func alignUp4(v uint64) uint64 { return (v + 3) &^ 3 }

func (q *queue) writeDesc(idx uint16, addr uint64, length uint32, flags uint16, next uint16) error {
	off := q.descBase + uint64(idx)*descSize
	buf := make([]byte, descSize)
	mmioEndian.PutUint64(buf[0:8], addr)
	mmioEndian.PutUint32(buf[8:12], length)
	mmioEndian.PutUint16(buf[12:14], flags)
	mmioEndian.PutUint16(buf[14:16], next)
	return q.arena.WriteAt(off, buf)
}

func (q *queue) availIdxOffset() uint64  { return q.availBase + 2 }
func (q *queue) availRingOffset(slot uint16) uint64 {
	return q.availBase + 4 + uint64(slot)*2
}

func (q *queue) readAvailIdx() uint16 {
	data, err := q.arena.ReadAt(q.availIdxOffset(), 2)
	if err != nil {
		return 0
	}
	return mmioEndian.Uint16(data)
}

func (q *queue) writeAvailIdx(idx uint16) error {
	b := make([]byte, 2)
	mmioEndian.PutUint16(b, idx)
	return q.arena.WriteAt(q.availIdxOffset(), b)
}

func (q *queue) publishAvail(headDesc uint16) error {
	slot := q.nextAvail % uint16(q.size)
	b := make([]byte, 2)
	mmioEndian.PutUint16(b, headDesc)
	if err := q.arena.WriteAt(q.availRingOffset(slot), b); err != nil {
		return err
	}
	q.nextAvail++
	return q.writeAvailIdx(q.nextAvail)
}

func (q *queue) usedIdxOffset() uint64 { return q.usedBase + 2 }

func (q *queue) usedRingOffset(slot uint16) uint64 {
	return q.usedBase + 4 + uint64(slot)*8
}

// publishUsed posts one completed descriptor chain to the used ring and
// advances its index — the device side's half of a request round trip
// (§4.5). Real hardware does this once its own I/O finishes; here it
// happens inline, in the same call that rang the doorbell, since
// nothing in this repository models the device as a separate process.
func (q *queue) publishUsed(descID uint16, length uint32) error {
	idx := q.readUsedIdx()
	slot := idx % uint16(q.size)

	buf := make([]byte, 8)
	mmioEndian.PutUint32(buf[0:4], uint32(descID))
	mmioEndian.PutUint32(buf[4:8], length)
	if err := q.arena.WriteAt(q.usedRingOffset(slot), buf); err != nil {
		return err
	}

	idx++
	b := make([]byte, 2)
	mmioEndian.PutUint16(b, idx)
	return q.arena.WriteAt(q.usedIdxOffset(), b)
}

func (q *queue) readUsedIdx() uint16 {
	data, err := q.arena.ReadAt(q.usedIdxOffset(), 2)
	if err != nil {
		return 0
	}
	return mmioEndian.Uint16(data)
}

// waitForCompletion spin-polls the used-ring index until it advances
// past lastUsed (§4.5 "spin-polls the used-ring index"). maxSpins bounds
// the loop so a disconnected device cannot hang the caller forever.
func (q *queue) waitForCompletion(maxSpins int) error {
	for i := 0; i < maxSpins; i++ {
		if q.readUsedIdx() != q.lastUsed {
			q.lastUsed++
			return nil
		}
	}
	return fmt.Errorf("virtio: timed out waiting for used-ring completion")
}
