package elf

// Segment is one loaded PT_LOAD segment: its virtual address range, the
// physical memory the loader allocated for it, how many of memsz bytes
// came from the file (the rest is BSS, already zeroed by the
// allocator), and its R/W/X permission flags (§3 "Loaded ELF").
type Segment struct {
	Vaddr      uint64
	MemSize    uint64
	FileSize   uint64
	PhysBase   uint64
	Executable bool
	Writable   bool
	Readable   bool
}

// Loaded is the result of loading an ELF64 image into physical memory:
// an entry point plus the bounded list of segments it was split into.
// Invariant: for any executable segment, PhysBase <= entry < PhysBase +
// MemSize for exactly one segment (§3).
type Loaded struct {
	Entry    uint64
	Segments []Segment
}

// entrySegment returns the one executable segment whose virtual range
// contains the entry point, and the entry's offset within it.
func (l *Loaded) entrySegment() (Segment, uint64, error) {
	for _, seg := range l.Segments {
		if !seg.Executable {
			continue
		}
		if l.Entry >= seg.Vaddr && l.Entry < seg.Vaddr+seg.MemSize {
			return seg, l.Entry - seg.Vaddr, nil
		}
	}
	return Segment{}, 0, ErrInvalidEntryPoint
}
