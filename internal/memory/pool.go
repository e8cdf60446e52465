package memory

// Allocator is the tiered physical allocator: it dispatches allocation
// requests by size and mode to a bump heap, a buddy pool, and (Advanced
// only) a size-classed small-object pool, all carved out of one Arena
// immediately after the kernel image and its guard page (§4.2).
type Allocator struct {
	layout Layout
	cfg    Config
	arena  *Arena

	heap   *bumpHeap
	buddy  *buddyPool
	small  *smallPool
	device *DeviceArena

	allocSize map[uint64]uint64 // base -> size, for Free's pool routing
}

// NewAllocator builds the tiered allocator over arena using the regions
// computed in layout/cfg. arena must cover at least [layout.HeapBase,
// layout.End).
func NewAllocator(layout Layout, cfg Config, arena *Arena) *Allocator {
	a := &Allocator{
		layout:    layout,
		cfg:       cfg,
		arena:     arena,
		allocSize: make(map[uint64]uint64),
	}
	a.heap = newBumpHeap(layout.HeapBase, layout.HeapSize)
	if cfg.BuddySize > 0 {
		a.buddy = newBuddyPool(layout.BuddyBase, layout.BuddySize)
	}
	if cfg.SmallSize > 0 {
		a.small = newSmallPool(layout.SmallBase, layout.SmallSize)
	}
	a.device = newDeviceArena(layout.DeviceBase, layout.DeviceSize, arena)
	return a
}

// Mode reports the tier this allocator was configured for.
func (a *Allocator) Mode() Mode { return a.cfg.Mode }

func (a *Allocator) maxSize() uint64 {
	switch a.cfg.Mode {
	case ModeMinimal:
		return a.layout.HeapSize
	case ModeStandard:
		return a.layout.BuddySize
	default:
		return a.layout.BuddySize
	}
}

// Allocate dispatches by size and mode: size 0 fails; size over the
// mode-specific maximum fails; every returned region is zeroed first.
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, ErrInvalidSize
	}
	if size > a.maxSize() {
		return 0, ErrInvalidSize
	}

	var (
		addr uint64
		err  error
	)

	switch {
	case a.cfg.Mode == ModeAdvanced && size <= 4096 && a.small != nil:
		addr, err = a.small.alloc(size)
	case a.buddy != nil:
		addr, err = a.buddy.alloc(size)
	default:
		addr, err = a.heap.alloc(size, 8)
	}
	if err != nil {
		return 0, err
	}

	if a.arena != nil {
		if zerr := a.arena.Zero(addr, size); zerr != nil {
			return 0, zerr
		}
	}
	a.allocSize[addr] = size
	return addr, nil
}

// Free releases a block previously returned by Allocate, routing it back
// to whichever tier handed it out.
func (a *Allocator) Free(addr uint64) {
	size, ok := a.allocSize[addr]
	if !ok {
		return
	}
	delete(a.allocSize, addr)

	switch {
	case a.small != nil && addr >= a.layout.SmallBase && addr < a.layout.SmallBase+a.layout.SmallSize:
		a.small.free_(addr, size)
	case a.buddy != nil && addr >= a.layout.BuddyBase && addr < a.layout.BuddyBase+a.layout.BuddySize:
		a.buddy.free_(addr, size)
	default:
		a.heap.free_(addr, size)
	}
}

// AllocAlignedKernelPage returns a page-sized, page-aligned, zeroed page
// for the page-table code (§4.2 "aligned-kernel-allocation entry point").
func (a *Allocator) AllocAlignedKernelPage() (uint64, error) {
	var (
		addr uint64
		err  error
	)
	if a.buddy != nil {
		addr, err = a.buddy.alloc(PageSize)
	} else {
		addr, err = a.heap.alloc(PageSize, PageSize)
	}
	if err != nil {
		return 0, err
	}
	if a.arena != nil {
		if zerr := a.arena.Zero(addr, PageSize); zerr != nil {
			return 0, zerr
		}
	}
	a.allocSize[addr] = PageSize
	return addr, nil
}

// AllocateDeviceMemory hands out aligned, contiguous, zeroed device
// memory for DMA descriptors and queues.
func (a *Allocator) AllocateDeviceMemory(size, align uint64) (uint64, error) {
	return a.device.Alloc(size, align)
}

// Arena exposes the backing byte array for components that need direct
// physical-address access (the MMU's page-table walker, the ELF loader).
func (a *Allocator) Arena() *Arena { return a.arena }

// Layout exposes the computed region boundaries.
func (a *Allocator) Layout() Layout { return a.layout }
