package elf

import (
	stdelf "debug/elf"
	"fmt"

	"github.com/elinos-go/elinos/internal/memory"
)

// Load parses data as an ELF64 RISC-V image and loads every PT_LOAD
// segment into physical memory obtained from alloc: p_memsz bytes are
// allocated and zeroed, then up to p_filesz bytes are copied from the
// file, clamped to data's actual length (§4.7 "allocates p_memsz bytes
// of physical memory, zeros it, and copies the file bytes clamped to
// the slice bounds").
func Load(data []byte, alloc *memory.Allocator) (*Loaded, error) {
	f, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	var segments []Segment
	for _, prog := range f.Progs {
		if prog.Type != stdelf.PT_LOAD || prog.Memsz == 0 {
			continue
		}

		physBase, err := alloc.Allocate(prog.Memsz)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMemoryAllocation, err)
		}

		fileSize := prog.Filesz
		if fileSize > prog.Memsz {
			fileSize = prog.Memsz
		}
		if fileSize > 0 {
			buf := make([]byte, fileSize)
			n, rerr := prog.ReadAt(buf, 0)
			if rerr != nil && uint64(n) < fileSize {
				return nil, fmt.Errorf("%w: read segment at offset 0x%x: %v", ErrLoadError, prog.Off, rerr)
			}
			if err := alloc.Arena().WriteAt(physBase, buf[:n]); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrLoadError, err)
			}
			fileSize = uint64(n)
		}

		segments = append(segments, Segment{
			Vaddr:      prog.Vaddr,
			MemSize:    prog.Memsz,
			FileSize:   fileSize,
			PhysBase:   physBase,
			Executable: prog.Flags&stdelf.PF_X != 0,
			Writable:   prog.Flags&stdelf.PF_W != 0,
			Readable:   prog.Flags&stdelf.PF_R != 0,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no loadable segments", ErrLoadError)
	}

	return &Loaded{Entry: f.Entry, Segments: segments}, nil
}
