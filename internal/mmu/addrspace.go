package mmu

import (
	"fmt"

	"github.com/elinos-go/elinos/internal/memory"
)

// AddressSpace owns a root page table and provides the page-level
// mapping operations of §4.3. There is one kernel address space plus
// zero or one active user address space.
type AddressSpace struct {
	root      uint64
	arena     *memory.Arena
	allocator *memory.Allocator
	mappings  map[uint64]PTE // va -> leaf PTE, tracked for Unmap/inspection
}

// NewAddressSpace allocates and zeroes a fresh root page, satisfying the
// invariant that the root is 4 KiB aligned and zeroed at creation.
func NewAddressSpace(allocator *memory.Allocator) (*AddressSpace, error) {
	root, err := allocator.AllocAlignedKernelPage()
	if err != nil {
		return nil, fmt.Errorf("mmu: allocating root page table: %w", err)
	}
	return &AddressSpace{
		root:      root,
		arena:     allocator.Arena(),
		allocator: allocator,
		mappings:  make(map[uint64]PTE),
	}, nil
}

// Root returns the physical address of the root page table.
func (as *AddressSpace) Root() uint64 { return as.root }

// walk descends from the root to the level-0 table containing va's leaf
// slot, allocating and zeroing intermediate tables along the way when
// create is true. It returns the final-level table and the VPN0 index
// of the leaf slot within it.
func (as *AddressSpace) walk(va uint64, create bool) (table, uint64, error) {
	idx, _ := vpn(va)
	cur := loadTable(as.root, as.arena)

	for level := levels - 1; level > 0; level-- {
		pte, err := cur.entry(idx[level])
		if err != nil {
			return table{}, 0, err
		}

		if !pte.Valid() {
			if !create {
				return table{}, 0, ErrNotMapped
			}
			childPA, err := as.allocator.AllocAlignedKernelPage()
			if err != nil {
				return table{}, 0, fmt.Errorf("mmu: allocating level-%d table: %w", level, err)
			}
			if err := cur.setEntry(idx[level], newBranchPTE(childPA>>PageShift)); err != nil {
				return table{}, 0, err
			}
			cur = loadTable(childPA, as.arena)
			continue
		}

		if pte.IsLeaf() {
			return table{}, 0, ErrIntermediateLeaf
		}
		cur = loadTable(pte.PhysAddr(), as.arena)
	}

	return cur, idx[0], nil
}

// MapPage installs a single 4 KiB mapping. It rejects the request if an
// intermediate entry is already a leaf, or if the target leaf is
// already valid (§4.3).
func (as *AddressSpace) MapPage(va, pa uint64, flags uint64) error {
	if va%PageSize != 0 || pa%PageSize != 0 {
		return ErrMisaligned
	}
	leafTable, leafIdx, err := as.walk(va, true)
	if err != nil {
		return err
	}
	existing, err := leafTable.entry(leafIdx)
	if err != nil {
		return err
	}
	if existing.Valid() {
		return ErrAlreadyMapped
	}
	if err := leafTable.setEntry(leafIdx, newLeafPTE(pa>>PageShift, flags)); err != nil {
		return err
	}
	as.mappings[va] = newLeafPTE(pa>>PageShift, flags)
	return nil
}

// UnmapPage clears the leaf entry for va and issues a virtual-address
// scoped TLB-invalidation fence.
func (as *AddressSpace) UnmapPage(va uint64) error {
	if va%PageSize != 0 {
		return ErrMisaligned
	}
	leafTable, leafIdx, err := as.walk(va, false)
	if err != nil {
		return err
	}
	existing, err := leafTable.entry(leafIdx)
	if err != nil {
		return err
	}
	if !existing.Valid() {
		return ErrNotMapped
	}
	if err := leafTable.setEntry(leafIdx, 0); err != nil {
		return err
	}
	delete(as.mappings, va)
	sfenceVMA(va)
	return nil
}

// MapRange maps a contiguous run of size bytes (rounded up to whole
// pages) starting at va/pa with the given flags.
func (as *AddressSpace) MapRange(va, pa, size uint64, flags uint64) error {
	if size == 0 {
		return fmt.Errorf("mmu: zero-size range")
	}
	pages := (size + PageSize - 1) / PageSize
	for i := uint64(0); i < pages; i++ {
		if err := as.MapPage(va+i*PageSize, pa+i*PageSize, flags); err != nil {
			return fmt.Errorf("mmu: mapping page %d/%d of range: %w", i+1, pages, err)
		}
	}
	return nil
}

// Translate resolves va to a physical address, returning ErrNotMapped if
// no leaf is installed for its page.
func (as *AddressSpace) Translate(va uint64) (uint64, error) {
	leafTable, leafIdx, err := as.walk(va, false)
	if err != nil {
		return 0, err
	}
	pte, err := leafTable.entry(leafIdx)
	if err != nil {
		return 0, err
	}
	if !pte.Valid() {
		return 0, ErrNotMapped
	}
	_, offset := vpn(va)
	return pte.PhysAddr() + offset, nil
}
