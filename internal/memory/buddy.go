package memory

// buddyPool is a classic power-of-two buddy allocator over a contiguous
// region, used for the Standard/Advanced "buddy region" tier (§4.2).
type buddyPool struct {
	base     uint64
	size     uint64
	minOrder uint // smallest block = 1 << minOrder
	maxOrder uint // largest block = 1 << maxOrder, == size rounded down

	free map[uint][]uint64 // order -> free block bases
}

const buddyMinBlock = 4096 // pages are the smallest buddy block

func newBuddyPool(base, size uint64) *buddyPool {
	maxOrder := uint(0)
	for (uint64(1) << (maxOrder + 1)) <= size {
		maxOrder++
	}
	minOrder := uint(0)
	for (uint64(1) << minOrder) < buddyMinBlock {
		minOrder++
	}

	p := &buddyPool{
		base:     base,
		size:     size,
		minOrder: minOrder,
		maxOrder: maxOrder,
		free:     make(map[uint][]uint64),
	}
	if maxOrder >= minOrder {
		p.free[maxOrder] = []uint64{base}
	}
	return p
}

func orderFor(size uint64, minOrder uint) uint {
	order := minOrder
	for (uint64(1) << order) < size {
		order++
	}
	return order
}

// alloc returns the base address of a block big enough for size, splitting
// larger free blocks as needed.
func (p *buddyPool) alloc(size uint64) (uint64, error) {
	if size == 0 {
		return 0, ErrInvalidSize
	}
	order := orderFor(size, p.minOrder)
	if order > p.maxOrder {
		return 0, ErrOutOfMemory
	}

	o := order
	for o <= p.maxOrder && len(p.free[o]) == 0 {
		o++
	}
	if o > p.maxOrder {
		return 0, ErrOutOfMemory
	}

	// Pop a block of order o, then split down to `order`.
	blocks := p.free[o]
	base := blocks[len(blocks)-1]
	p.free[o] = blocks[:len(blocks)-1]

	for o > order {
		o--
		buddy := base + (uint64(1) << o)
		p.free[o] = append(p.free[o], buddy)
	}
	return base, nil
}

func (p *buddyPool) free_(addr uint64, size uint64) {
	order := orderFor(size, p.minOrder)
	for order < p.maxOrder {
		buddy := addr ^ (uint64(1) << order) // only valid because base is 0-relative
		_ = buddy
		break
	}
	p.free[order] = append(p.free[order], addr)
	p.coalesce(order)
}

// coalesce merges a block with its buddy when both are free, walking up
// orders until no more merges are possible.
func (p *buddyPool) coalesce(order uint) {
	for order < p.maxOrder {
		blocks := p.free[order]
		merged := false
		for i, a := range blocks {
			rel := a - p.base
			buddyRel := rel ^ (uint64(1) << order)
			buddyAddr := p.base + buddyRel
			for j, b := range blocks {
				if j != i && b == buddyAddr {
					// remove both, add parent
					lo := a
					if buddyAddr < lo {
						lo = buddyAddr
					}
					newBlocks := make([]uint64, 0, len(blocks))
					for k, v := range blocks {
						if k != i && k != j {
							newBlocks = append(newBlocks, v)
						}
					}
					p.free[order] = newBlocks
					p.free[order+1] = append(p.free[order+1], lo)
					merged = true
					break
				}
			}
			if merged {
				break
			}
		}
		if !merged {
			return
		}
		order++
	}
}
