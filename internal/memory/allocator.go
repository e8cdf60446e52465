package memory

import (
	"errors"
	"sort"
)

// Mode classifies the system by detected RAM size (§3 "Physical allocator
// configuration").
type Mode int

const (
	ModeMinimal Mode = iota
	ModeStandard
	ModeAdvanced
)

func (m Mode) String() string {
	switch m {
	case ModeMinimal:
		return "Minimal"
	case ModeStandard:
		return "Standard"
	case ModeAdvanced:
		return "Advanced"
	default:
		return "Unknown"
	}
}

const (
	minimalThreshold  = 16 * 1024 * 1024
	standardThreshold = 128 * 1024 * 1024
)

// ClassifyMode selects a tier from the size of the RAM available to the
// kernel after the bootloader/kernel footprint is subtracted.
func ClassifyMode(availableRAM uint64) Mode {
	switch {
	case availableRAM < minimalThreshold:
		return ModeMinimal
	case availableRAM <= standardThreshold:
		return ModeStandard
	default:
		return ModeAdvanced
	}
}

// Config holds the four abutting region sizes derived from Mode, as fixed
// percentages of availableRAM with floors (§4.2).
type Config struct {
	Mode       Mode
	HeapSize   uint64
	BuddySize  uint64
	SmallSize  uint64
	DeviceSize uint64
}

const (
	floorHeap   = 256 * 1024
	floorBuddy  = 512 * 1024
	floorSmall  = 128 * 1024
	floorDevice = 64 * 1024
)

// NewConfig derives region sizes from availableRAM. Minimal mode leaves
// only the heap live; Standard adds the buddy region; Advanced adds the
// small-object region too (§4.2). Each size is rounded down to a whole
// number of pages, so every region NewLayout places stays page-aligned.
func NewConfig(availableRAM uint64) Config {
	mode := ClassifyMode(availableRAM)
	cfg := Config{Mode: mode}

	pct := func(p uint64, floor uint64) uint64 {
		v := availableRAM * p / 100
		if v < floor {
			v = floor
		}
		return v &^ (PageSize - 1)
	}

	switch mode {
	case ModeMinimal:
		cfg.HeapSize = pct(60, floorHeap)
		cfg.DeviceSize = pct(5, floorDevice)
	case ModeStandard:
		cfg.HeapSize = pct(25, floorHeap)
		cfg.BuddySize = pct(45, floorBuddy)
		cfg.DeviceSize = pct(5, floorDevice)
	case ModeAdvanced:
		cfg.HeapSize = pct(20, floorHeap)
		cfg.BuddySize = pct(45, floorBuddy)
		cfg.SmallSize = pct(15, floorSmall)
		cfg.DeviceSize = pct(5, floorDevice)
	}
	return cfg
}

// Errors surfaced by the allocator (§7 "allocator").
var (
	ErrOutOfMemory       = errors.New("memory: out of memory")
	ErrInvalidSize       = errors.New("memory: invalid size")
	ErrInvalidAlignment  = errors.New("memory: invalid alignment")
	ErrFragmentation     = errors.New("memory: fragmentation")
	ErrSystemError       = errors.New("memory: system error")
)

type freeRange struct {
	base, size uint64
}

// bumpHeap is a bump-style allocator over free-byte-range tracking with
// coalescing on free, used standalone in Minimal mode and as the
// general-purpose heap tier otherwise (§4.2 "Deallocation updates a
// sorted list of free ranges and coalesces adjacent entries").
type bumpHeap struct {
	base, size uint64
	bump       uint64
	free       []freeRange // sorted by base, non-overlapping
}

func newBumpHeap(base, size uint64) *bumpHeap {
	return &bumpHeap{base: base, size: size, bump: base}
}

func (h *bumpHeap) alloc(size, align uint64) (uint64, error) {
	if size == 0 {
		return 0, ErrInvalidSize
	}
	if align == 0 || align&(align-1) != 0 {
		return 0, ErrInvalidAlignment
	}

	// First-fit among freed ranges.
	for i, r := range h.free {
		start := alignUp(r.base, align)
		if start+size <= r.base+r.size {
			// Carve [start, start+size) out of r.
			h.removeFree(i)
			if start > r.base {
				h.free = append(h.free, freeRange{r.base, start - r.base})
			}
			end := start + size
			if end < r.base+r.size {
				h.free = append(h.free, freeRange{end, r.base + r.size - end})
			}
			h.sortFree()
			return start, nil
		}
	}

	start := alignUp(h.bump, align)
	if start+size > h.base+h.size {
		return 0, ErrOutOfMemory
	}
	if start > h.bump {
		h.free = append(h.free, freeRange{h.bump, start - h.bump})
		h.sortFree()
	}
	h.bump = start + size
	return start, nil
}

func (h *bumpHeap) free_(addr, size uint64) {
	h.free = append(h.free, freeRange{addr, size})
	h.sortFree()
	h.coalesce()
}

func (h *bumpHeap) removeFree(i int) {
	h.free = append(h.free[:i], h.free[i+1:]...)
}

func (h *bumpHeap) sortFree() {
	sort.Slice(h.free, func(i, j int) bool { return h.free[i].base < h.free[j].base })
}

func (h *bumpHeap) coalesce() {
	if len(h.free) < 2 {
		return
	}
	out := h.free[:1]
	for _, r := range h.free[1:] {
		last := &out[len(out)-1]
		if last.base+last.size == r.base {
			last.size += r.size
		} else {
			out = append(out, r)
		}
	}
	h.free = out
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
