package memory

// smallPool is a size-classed allocator for requests up to 4 KiB, live
// only in Advanced mode (§4.2).
type smallPool struct {
	base, size uint64
	bump       uint64
	classes    []uint64 // size classes, ascending
	freeLists  map[uint64][]uint64
}

var defaultSizeClasses = []uint64{16, 32, 64, 128, 256, 512, 1024, 2048, 4096}

func newSmallPool(base, size uint64) *smallPool {
	return &smallPool{
		base:      base,
		size:      size,
		bump:      base,
		classes:   defaultSizeClasses,
		freeLists: make(map[uint64][]uint64),
	}
}

func (p *smallPool) classFor(size uint64) (uint64, error) {
	for _, c := range p.classes {
		if size <= c {
			return c, nil
		}
	}
	return 0, ErrInvalidSize
}

func (p *smallPool) alloc(size uint64) (uint64, error) {
	if size == 0 {
		return 0, ErrInvalidSize
	}
	class, err := p.classFor(size)
	if err != nil {
		return 0, err
	}

	if fl := p.freeLists[class]; len(fl) > 0 {
		addr := fl[len(fl)-1]
		p.freeLists[class] = fl[:len(fl)-1]
		return addr, nil
	}

	start := alignUp(p.bump, class)
	if start+class > p.base+p.size {
		return 0, ErrOutOfMemory
	}
	p.bump = start + class
	return start, nil
}

func (p *smallPool) free_(addr, size uint64) {
	class, err := p.classFor(size)
	if err != nil {
		return
	}
	p.freeLists[class] = append(p.freeLists[class], addr)
}
