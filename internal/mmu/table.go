package mmu

import (
	"encoding/binary"

	"github.com/elinos-go/elinos/internal/memory"
)

var tableEndian = binary.LittleEndian

const (
	// PageSize is the Sv39 page granule.
	PageSize = 4096
	// PageShift is the number of offset bits within a page.
	PageShift = 12
	// entriesPerTable is 512 = 2^9, one per 9-bit VPN field.
	entriesPerTable = 512
	// levels is the Sv39 table depth.
	levels = 3
)

// vpn splits a 39-bit virtual address into its three 9-bit VPN fields,
// indexed by level (idx[2] is VPN2 for the root table, idx[0] is VPN0 for
// the leaf table), plus the 12-bit page offset.
func vpn(va uint64) (idx [levels]uint64, offset uint64) {
	offset = va & (PageSize - 1)
	idx[0] = (va >> 12) & 0x1ff
	idx[1] = (va >> 21) & 0x1ff
	idx[2] = (va >> 30) & 0x1ff
	return idx, offset
}

// table is a page-sized, page-aligned arena block read/written through
// the owning Arena: tables are addressed by physical address, not held
// as Go pointers, avoiding a manual node graph that would fight the
// flat-array memory model.
type table struct {
	pa    uint64
	arena *memory.Arena
}

func loadTable(pa uint64, arena *memory.Arena) table {
	return table{pa: pa, arena: arena}
}

func (t table) entry(i uint64) (PTE, error) {
	data, err := t.arena.ReadAt(t.pa+i*8, 8)
	if err != nil {
		return 0, err
	}
	return PTE(tableEndian.Uint64(data)), nil
}

func (t table) setEntry(i uint64, pte PTE) error {
	b := make([]byte, 8)
	tableEndian.PutUint64(b, uint64(pte))
	return t.arena.WriteAt(t.pa+i*8, b)
}
