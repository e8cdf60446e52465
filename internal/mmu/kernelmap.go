package mmu

import "fmt"

// DeviceWindowSize is the size of the identity-mapped MMIO window
// covering the UART and VirtIO base (§4.3).
const DeviceWindowSize = 64 * 1024

// KernelRegions describes the ranges the kernel address space identity-
// maps at boot (§4.3 paragraph 2).
type KernelRegions struct {
	KernelBase, KernelSize uint64 // rounded up to page + 64 KiB margin by the caller
	StackBase, StackSize   uint64
	HeapBase, HeapSize     uint64
	DeviceBase             uint64 // UART/VirtIO MMIO base; window is DeviceWindowSize
}

// SetupKernelMappings identity-maps the kernel image (R/W/X/Global), the
// kernel stack (R/W/Global), the kernel heap (R/W/Global), and the
// device window (R/W/Global). Device-mapping failure is logged by the
// caller and treated as non-fatal, per §4.3; every other failure is
// fatal to boot.
func SetupKernelMappings(as *AddressSpace, regions KernelRegions) (deviceMapErr error, err error) {
	if err := as.MapRange(regions.KernelBase, regions.KernelBase, regions.KernelSize, FlagR|FlagW|FlagX|FlagG); err != nil {
		return nil, fmt.Errorf("mmu: mapping kernel image: %w", err)
	}
	if err := as.MapRange(regions.StackBase, regions.StackBase, regions.StackSize, FlagR|FlagW|FlagG); err != nil {
		return nil, fmt.Errorf("mmu: mapping kernel stack: %w", err)
	}
	if err := as.MapRange(regions.HeapBase, regions.HeapBase, regions.HeapSize, FlagR|FlagW|FlagG); err != nil {
		return nil, fmt.Errorf("mmu: mapping kernel heap: %w", err)
	}

	if err := as.MapRange(regions.DeviceBase, regions.DeviceBase, DeviceWindowSize, FlagR|FlagW|FlagG); err != nil {
		return fmt.Errorf("mmu: mapping device window: %w", err), nil
	}
	return nil, nil
}

// SetupUserMappings mirrors the kernel's device window (read/write,
// user) and additionally maps the kernel image and stack with
// kernel-only flags, so the trap-return path and handlers remain
// executable immediately after a mode switch into this user space
// (§4.3 paragraph 4).
func SetupUserMappings(as *AddressSpace, regions KernelRegions) error {
	if err := as.MapRange(regions.DeviceBase, regions.DeviceBase, DeviceWindowSize, FlagR|FlagW|FlagU); err != nil {
		return fmt.Errorf("mmu: mapping user device window: %w", err)
	}
	if err := as.MapRange(regions.KernelBase, regions.KernelBase, regions.KernelSize, FlagR|FlagW|FlagX); err != nil {
		return fmt.Errorf("mmu: mapping kernel image into user space: %w", err)
	}
	if err := as.MapRange(regions.StackBase, regions.StackBase, regions.StackSize, FlagR|FlagW); err != nil {
		return fmt.Errorf("mmu: mapping kernel stack into user space: %w", err)
	}
	return nil
}
