package mmu

import (
	"testing"

	"github.com/elinos-go/elinos/internal/memory"
)

func newTestAllocator(t *testing.T) *memory.Allocator {
	t.Helper()
	cfg := memory.NewConfig(256 * 1024 * 1024)
	layout := memory.NewLayout(0x8040_0000, 0x20_0000, cfg)
	arena := memory.NewArena(layout.HeapBase, layout.End-layout.HeapBase)
	return memory.NewAllocator(layout, cfg, arena)
}

func TestMapAndTranslate(t *testing.T) {
	as, err := NewAddressSpace(newTestAllocator(t))
	if err != nil {
		t.Fatalf("NewAddressSpace: %v", err)
	}

	va := uint64(0x1000_0000)
	pa := uint64(0x8100_0000)
	if err := as.MapPage(va, pa, FlagR|FlagW); err != nil {
		t.Fatalf("MapPage: %v", err)
	}

	got, err := as.Translate(va + 0x10)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != pa+0x10 {
		t.Fatalf("Translate = 0x%x, want 0x%x", got, pa+0x10)
	}
}

func TestMapPageRejectsDoubleMap(t *testing.T) {
	as, err := NewAddressSpace(newTestAllocator(t))
	if err != nil {
		t.Fatalf("NewAddressSpace: %v", err)
	}

	va, pa := uint64(0x2000_0000), uint64(0x8200_0000)
	if err := as.MapPage(va, pa, FlagR); err != nil {
		t.Fatalf("first MapPage: %v", err)
	}
	if err := as.MapPage(va, pa, FlagR); err != ErrAlreadyMapped {
		t.Fatalf("expected ErrAlreadyMapped, got %v", err)
	}
}

func TestUnmapThenTranslateFails(t *testing.T) {
	as, err := NewAddressSpace(newTestAllocator(t))
	if err != nil {
		t.Fatalf("NewAddressSpace: %v", err)
	}

	va, pa := uint64(0x3000_0000), uint64(0x8300_0000)
	if err := as.MapPage(va, pa, FlagR|FlagW); err != nil {
		t.Fatalf("MapPage: %v", err)
	}
	if err := as.UnmapPage(va); err != nil {
		t.Fatalf("UnmapPage: %v", err)
	}
	if _, err := as.Translate(va); err != ErrNotMapped {
		t.Fatalf("expected ErrNotMapped, got %v", err)
	}
}

func TestMapRangeCoversAllPages(t *testing.T) {
	as, err := NewAddressSpace(newTestAllocator(t))
	if err != nil {
		t.Fatalf("NewAddressSpace: %v", err)
	}

	va, pa := uint64(0x4000_0000), uint64(0x8400_0000)
	size := uint64(3 * PageSize)
	if err := as.MapRange(va, pa, size, FlagR); err != nil {
		t.Fatalf("MapRange: %v", err)
	}
	for i := uint64(0); i < 3; i++ {
		got, err := as.Translate(va + i*PageSize)
		if err != nil {
			t.Fatalf("Translate page %d: %v", i, err)
		}
		if got != pa+i*PageSize {
			t.Fatalf("page %d: got 0x%x want 0x%x", i, got, pa+i*PageSize)
		}
	}
}

func TestEncodeSATP(t *testing.T) {
	root := uint64(0x8000_1000)
	encoded := EncodeSATP(root)
	if encoded>>60 != satpModeSv39 {
		t.Fatalf("mode field = %d, want %d", encoded>>60, satpModeSv39)
	}
	if encoded&((1<<44)-1) != root>>PageShift {
		t.Fatalf("ppn field mismatch")
	}
}

type fakeHardware struct {
	value uint64
}

func (f *fakeHardware) WriteSATP(v uint64) { f.value = v }
func (f *fakeHardware) ReadSATP() uint64   { return f.value }

func TestActivateWithWorkingHardware(t *testing.T) {
	hw := &fakeHardware{}
	res, err := Activate(0x8000_1000, hw)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !res.HardwareOK {
		t.Fatalf("expected hardware activation to succeed")
	}
}

func TestActivateFallsBackWithoutHardware(t *testing.T) {
	res, err := Activate(0x8000_1000, nil)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if res.HardwareOK {
		t.Fatalf("expected software fallback with nil hardware writer")
	}
}

func TestActivateRejectsMisalignedRoot(t *testing.T) {
	if _, err := Activate(0x8000_1001, nil); err != ErrMisaligned {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}
