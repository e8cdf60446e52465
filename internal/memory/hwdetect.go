package memory

import "github.com/elinos-go/elinos/internal/fdt"

// FallbackRAMBase and FallbackRAMSize match QEMU's riscv64 virt machine
// default (-m 128M at the conventional load base), used when device-tree
// detection fails or no blob is available.
const (
	FallbackRAMBase = 0x8000_0000
	FallbackRAMSize = 128 * 1024 * 1024
)

// DetectMainRAM parses dtb (may be nil) for a /memory node's reg property
// and returns the first region found. It never errors; callers fall back
// to GetFallbackRAM on a miss, per §3's hardware-detection-with-fallback
// contract.
func DetectMainRAM(dtb []byte) (Region, bool) {
	if len(dtb) == 0 {
		return Region{}, false
	}
	regions, err := fdt.FindMemoryRegions(dtb)
	if err != nil || len(regions) == 0 {
		return Region{}, false
	}
	r := regions[0]
	return NewRAMRegion(r.Base, r.Size), true
}

// GetFallbackRAM returns the hard-coded default RAM region used when
// hardware detection fails.
func GetFallbackRAM() Region {
	return NewRAMRegion(FallbackRAMBase, FallbackRAMSize)
}

// DetectOrFallback runs DetectMainRAM and falls back automatically.
func DetectOrFallback(dtb []byte) Region {
	if r, ok := DetectMainRAM(dtb); ok {
		return r
	}
	return GetFallbackRAM()
}
