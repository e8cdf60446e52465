// Package boot implements the bootloader stage (§4.1): RAM detection
// with a hard fallback, a scan of candidate memory regions for a valid
// kernel ELF image, direct physical loading of its LOAD segments, and
// construction of the handoff descriptor passed to the kernel's entry
// point. This mirrors the retrieved rv64 emulator's boot sequence and
// elinOS's own two-stage bootloader/kernel split, modeled here as plain
// function calls over a shared memory.Arena rather than a real jump —
// Go cannot emit the S-mode entry trampoline itself, so the handoff
// descriptor stands in for the CPU jump a real bootloader would make.
package boot

import "github.com/elinos-go/elinos/internal/memory"

// defaultRAMBase/defaultRAMSize back RAM detection when no region list
// is supplied (§4.1 "falling back to a known default when detection
// fails"), matching QEMU virt's default -m 128M layout.
const (
	defaultRAMBase = 0x8000_0000
	defaultRAMSize = 128 * 1024 * 1024
)

// kernelLoadBase is the address the handoff descriptor reports as the
// kernel's load base. The bootloader itself does not choose where the
// kernel lands — that is wherever its own p_vaddr fields say — but the
// descriptor's KernelBase field records the region the kernel should
// treat as off-limits to its own allocator.
const kernelLoadBase = 0x8020_0000

// Boot runs the full bootloader sequence: detects RAM (falling back to
// a fixed default), searches the detected regions for a valid kernel
// image, loads it, and returns the physical entry point to jump to
// plus the handoff descriptor for the kernel's first argument
// register. reservedSize is the combined bootloader+kernel static
// footprint to subtract from the front of RAM before reporting what is
// available to the kernel's allocator.
//
// It consumes the full detected RAM list rather than hard-coding one
// region, falling back to the single default region only when RAM
// detection itself yields nothing.
func Boot(arena *memory.Arena, ramRegions []memory.Region, reservedSize uint64) (uint64, Handoff, error) {
	memBase, memSize := detectRAM(ramRegions)

	regions := make([]SearchRegion, 0, len(ramRegions))
	for _, r := range ramRegions {
		regions = append(regions, SearchRegion{Base: r.Base, Size: r.Size})
	}
	if len(regions) == 0 {
		regions = []SearchRegion{{Base: defaultRAMBase, Size: defaultRAMSize}}
	}

	entry, err := FindAndLoadKernel(arena, regions)
	if err != nil {
		return 0, Handoff{}, err
	}

	availableStart := memBase + reservedSize
	var availableSize uint64
	if memBase+memSize > availableStart {
		availableSize = memBase + memSize - availableStart
	}

	handoff := NewHandoff(memBase, memSize, kernelLoadBase, availableStart, availableSize)
	return entry, handoff, nil
}

// detectRAM reports the lowest detected region's base and the combined
// size of every detected region, or the hard-coded default if none
// were detected.
func detectRAM(regions []memory.Region) (base, size uint64) {
	if len(regions) == 0 {
		return defaultRAMBase, defaultRAMSize
	}
	base = regions[0].Base
	for _, r := range regions {
		if r.Base < base {
			base = r.Base
		}
		size += r.Size
	}
	return base, size
}
