package memory

// DeviceArena is the bump-style arena satisfying DMA descriptor/queue
// allocations with aligned, contiguous, physically addressable memory
// (§4.2). It never frees — device queues live for the machine's lifetime.
type DeviceArena struct {
	base, size uint64
	bump       uint64
	arena      *Arena
}

func newDeviceArena(base, size uint64, arena *Arena) *DeviceArena {
	return &DeviceArena{base: base, size: size, bump: base, arena: arena}
}

// Alloc returns a zeroed, aligned, contiguous block of size bytes.
func (d *DeviceArena) Alloc(size, align uint64) (uint64, error) {
	if size == 0 {
		return 0, ErrInvalidSize
	}
	if align == 0 || align&(align-1) != 0 {
		return 0, ErrInvalidAlignment
	}
	start := alignUp(d.bump, align)
	if start+size > d.base+d.size {
		return 0, ErrOutOfMemory
	}
	d.bump = start + size
	if d.arena != nil {
		if err := d.arena.Zero(start, size); err != nil {
			return 0, err
		}
	}
	return start, nil
}

// Base and Size report the arena's extent, for VirtIO's "addressable by
// the transport, no virtual remap needed" invariant.
func (d *DeviceArena) Base() uint64 { return d.base }
func (d *DeviceArena) Size() uint64 { return d.size }
