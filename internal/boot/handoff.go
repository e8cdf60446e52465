package boot

// HandoffMagic marks a descriptor as produced by a conforming
// bootloader (§3 "Bootloader handoff descriptor"). The kernel must not
// trust any other field unless this matches.
const HandoffMagic = 0xEA15_0000_B007_AB1E

// Handoff is the fixed-layout record the bootloader hands the kernel:
// the magic word, main-RAM geometry, the kernel's load base, and the
// RAM left over for the kernel's own allocator once the bootloader and
// kernel footprints are subtracted (§6 "Handoff descriptor (binary
// layout, little-endian, packed)").
type Handoff struct {
	Magic             uint64
	MemoryBase        uint64
	MemorySize        uint64
	KernelBase        uint64
	AvailableRAMStart uint64
	AvailableRAMSize  uint64
}

// Valid reports whether the descriptor carries the expected magic. A
// kernel that receives a descriptor failing this check must fall back
// to self-detection rather than trust MemoryBase/KernelBase (§8
// "Handoff descriptor with magic != ...: kernel must not trust other
// fields").
func (h Handoff) Valid() bool {
	return h.Magic == HandoffMagic
}

// NewHandoff builds a valid descriptor for a bootloader that detected
// memoryBase/memorySize, loaded the kernel at kernelBase, and reserved
// [memoryBase, availableRAMStart) for its own and the kernel's static
// footprint.
func NewHandoff(memoryBase, memorySize, kernelBase, availableRAMStart, availableRAMSize uint64) Handoff {
	return Handoff{
		Magic:             HandoffMagic,
		MemoryBase:        memoryBase,
		MemorySize:        memorySize,
		KernelBase:        kernelBase,
		AvailableRAMStart: availableRAMStart,
		AvailableRAMSize:  availableRAMSize,
	}
}
