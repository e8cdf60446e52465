package boot

import (
	stdelf "debug/elf"

	"github.com/elinos-go/elinos/internal/memory"
)

// FindAndLoadKernel scans each region in order for a valid kernel ELF
// image, copies its LOAD segments directly to their p_vaddr physical
// addresses and zero-fills the memsz-filesz tail (§4.1 "copies p_filesz
// bytes from elf_base+p_offset to the physical address equal to
// p_vaddr, then zero-fills the tail"), and returns the entry point to
// jump to. It never returns an address it has not itself validated and
// loaded: on the first region/candidate that parses and loads cleanly
// it stops searching. If nothing in any region validates, it returns
// ErrNoKernelFound and the caller must halt rather than guess (§4.1
// "Failure semantics: ... never jumps to an unvalidated address").
func FindAndLoadKernel(arena *memory.Arena, regions []SearchRegion) (uint64, error) {
	for _, region := range regions {
		data, err := arena.ReadAt(region.Base, region.Size)
		if err != nil {
			continue
		}
		for _, off := range findCandidates(data) {
			f, err := parseCandidate(data[off:])
			if err != nil {
				continue
			}
			entry, err := loadSegments(arena, f)
			if err != nil {
				continue
			}
			return entry, nil
		}
	}
	return 0, ErrNoKernelFound
}

// loadSegments copies every PT_LOAD segment of f to its p_vaddr
// physical address, zero-filling memsz-filesz trailing bytes. Every
// byte of a segment is written even in the file-backed region, since
// the destination arena is not guaranteed pre-zeroed the way the
// allocator-backed internal/elf loader's arena is.
func loadSegments(arena *memory.Arena, f *stdelf.File) (uint64, error) {
	loaded := false
	for _, prog := range f.Progs {
		if prog.Type != stdelf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		buf := make([]byte, prog.Memsz)
		if prog.Filesz > 0 {
			fileSize := prog.Filesz
			if fileSize > prog.Memsz {
				fileSize = prog.Memsz
			}
			fileBuf := make([]byte, fileSize)
			n, rerr := prog.ReadAt(fileBuf, 0)
			if rerr != nil && uint64(n) < fileSize {
				return 0, ErrLoadError
			}
			copy(buf, fileBuf[:n])
		}
		if err := arena.WriteAt(prog.Vaddr, buf); err != nil {
			return 0, ErrLoadError
		}
		loaded = true
	}
	if !loaded {
		return 0, ErrLoadError
	}
	return f.Entry, nil
}
