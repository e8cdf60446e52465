package memory

import "testing"

func TestAllocatorMinimalMode(t *testing.T) {
	cfg := NewConfig(8 * 1024 * 1024) // forces ModeMinimal
	if cfg.Mode != ModeMinimal {
		t.Fatalf("expected ModeMinimal, got %v", cfg.Mode)
	}
	layout := NewLayout(0x8040_0000, 0x20_0000, cfg)
	arena := NewArena(layout.HeapBase, layout.End-layout.HeapBase)
	alloc := NewAllocator(layout, cfg, arena)

	addr, err := alloc.Allocate(128)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if addr < layout.HeapBase || addr >= layout.HeapBase+layout.HeapSize {
		t.Fatalf("allocation 0x%x outside heap region", addr)
	}
	alloc.Free(addr)
}

func TestAllocatorRejectsZeroSize(t *testing.T) {
	cfg := NewConfig(256 * 1024 * 1024)
	layout := NewLayout(0x8040_0000, 0x20_0000, cfg)
	arena := NewArena(layout.HeapBase, layout.End-layout.HeapBase)
	alloc := NewAllocator(layout, cfg, arena)

	if _, err := alloc.Allocate(0); err != ErrInvalidSize {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestAllocatorRejectsOversize(t *testing.T) {
	cfg := NewConfig(8 * 1024 * 1024)
	layout := NewLayout(0x8040_0000, 0x20_0000, cfg)
	arena := NewArena(layout.HeapBase, layout.End-layout.HeapBase)
	alloc := NewAllocator(layout, cfg, arena)

	if _, err := alloc.Allocate(cfg.HeapSize * 2); err != ErrInvalidSize {
		t.Fatalf("expected ErrInvalidSize, got %v", err)
	}
}

func TestAdvancedModeUsesSmallPoolForTinyAllocations(t *testing.T) {
	cfg := NewConfig(512 * 1024 * 1024)
	if cfg.Mode != ModeAdvanced {
		t.Fatalf("expected ModeAdvanced, got %v", cfg.Mode)
	}
	layout := NewLayout(0x8040_0000, 0x20_0000, cfg)
	arena := NewArena(layout.HeapBase, layout.End-layout.HeapBase)
	alloc := NewAllocator(layout, cfg, arena)

	addr, err := alloc.Allocate(24)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if addr < layout.SmallBase || addr >= layout.SmallBase+layout.SmallSize {
		t.Fatalf("small allocation 0x%x landed outside small pool", addr)
	}
}

func TestAllocAlignedKernelPage(t *testing.T) {
	cfg := NewConfig(256 * 1024 * 1024)
	layout := NewLayout(0x8040_0000, 0x20_0000, cfg)
	arena := NewArena(layout.HeapBase, layout.End-layout.HeapBase)
	alloc := NewAllocator(layout, cfg, arena)

	pa, err := alloc.AllocAlignedKernelPage()
	if err != nil {
		t.Fatalf("AllocAlignedKernelPage: %v", err)
	}
	if pa%PageSize != 0 {
		t.Fatalf("page 0x%x is not page-aligned", pa)
	}
}

func TestAllocateDeviceMemory(t *testing.T) {
	cfg := NewConfig(256 * 1024 * 1024)
	layout := NewLayout(0x8040_0000, 0x20_0000, cfg)
	arena := NewArena(layout.HeapBase, layout.End-layout.HeapBase)
	alloc := NewAllocator(layout, cfg, arena)

	addr, err := alloc.AllocateDeviceMemory(64, 16)
	if err != nil {
		t.Fatalf("AllocateDeviceMemory: %v", err)
	}
	if addr%16 != 0 {
		t.Fatalf("device allocation 0x%x not aligned to 16", addr)
	}
	if addr < layout.DeviceBase || addr >= layout.DeviceBase+layout.DeviceSize {
		t.Fatalf("device allocation 0x%x outside device region", addr)
	}
}
