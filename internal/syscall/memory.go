package syscall

// mapAnonymous is Linux's MAP_ANONYMOUS flag bit.
const mapAnonymous = 0x20

// defaultBrkSize is the initial program-break region size, large enough
// for typical small user programs without forcing a grow on first use.
const defaultBrkSize = 64 * 1024

// handleMemory services brk/mmap/munmap (§4.7 "memory management").
func (d *Dispatcher) handleMemory(number uint64, args [6]uint64) (int64, int) {
	switch number {
	case SysBrk:
		return d.sysBrk(args[0])
	case SysMmap:
		return d.sysMmap(args[1], args[3])
	case SysMunmap:
		d.Alloc.Free(args[0])
		return 0, 0
	default:
		return -1, ENOSYS
	}
}

// sysBrk lazily initializes the program break on first query (addr==0)
// and grows it by allocating more backing memory when addr exceeds the
// current top; shrinking only updates the recorded pointer (§4.7 "brk").
func (d *Dispatcher) sysBrk(addr uint64) (int64, int) {
	pid := d.Procs.CurrentPID()
	p, ok := d.Procs.Get(pid)
	if !ok {
		return -1, ESRCH
	}

	if p.MemBase == 0 {
		base, err := d.Alloc.Allocate(defaultBrkSize)
		if err != nil {
			return -1, ENOMEM
		}
		d.Procs.SetBrk(pid, base, defaultBrkSize)
		p.MemBase, p.MemSize = base, defaultBrkSize
	}

	top := p.MemBase + p.MemSize
	if addr == 0 || addr == top {
		return int64(top), 0
	}
	if addr < top {
		if addr < p.MemBase {
			return int64(top), 0
		}
		d.Procs.SetBrk(pid, p.MemBase, addr-p.MemBase)
		return int64(addr), 0
	}

	grow := addr - top
	if _, err := d.Alloc.Allocate(grow); err != nil {
		return int64(top), 0
	}
	d.Procs.SetBrk(pid, p.MemBase, p.MemSize+grow)
	return int64(addr), 0
}

// sysMmap returns an aligned allocation from the kernel allocator for
// MAP_ANONYMOUS requests; any other mapping is ENOSYS (§4.7 "mmap").
func (d *Dispatcher) sysMmap(length, flags uint64) (int64, int) {
	if flags&mapAnonymous == 0 {
		return -1, ENOSYS
	}
	addr, err := d.Alloc.Allocate(length)
	if err != nil {
		return -1, ENOMEM
	}
	return int64(addr), 0
}
