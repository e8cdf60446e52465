package mmu

// Sv39 mode field value for the encoded translation register (satp).
const satpModeSv39 = 8

// EncodeSATP builds the encoded translation register value
// `(mode=Sv39 << 60) | root_ppn` from a root page-table physical
// address (§3 "Address space").
func EncodeSATP(root uint64) uint64 {
	return satpModeSv39<<60 | (root >> PageShift)
}

// HardwareWriter is the narrow seam onto a real supervisor
// address-translation register. Implementations targeting actual
// hardware provide Write/Read against the satp CSR; this repository has
// no such register, so Activate's caller supplies a software stand-in
// (or nil, which always yields a software MMU).
type HardwareWriter interface {
	WriteSATP(value uint64)
	ReadSATP() uint64
}

// ActivationResult reports whether hardware translation came up live.
type ActivationResult struct {
	Encoded    uint64
	HardwareOK bool
}

// Activate validates alignment, mode, and PPN, then — with interrupts
// conceptually disabled around full memory/instruction fences — writes
// the encoded register and reads it back. A mismatch (or a nil
// hardware writer) downgrades to software translation: the page tables
// stay authoritative for translation queries, but memory accesses
// continue as physical accesses (§4.3). The system never depends on
// hardware activation for correctness.
func Activate(root uint64, hw HardwareWriter) (ActivationResult, error) {
	if root%PageSize != 0 {
		return ActivationResult{}, ErrMisaligned
	}
	encoded := EncodeSATP(root)

	if hw == nil {
		return ActivationResult{Encoded: encoded, HardwareOK: false}, nil
	}

	fenceAll()
	hw.WriteSATP(encoded)
	fenceAll()

	readBack := hw.ReadSATP()
	return ActivationResult{Encoded: encoded, HardwareOK: readBack == encoded}, nil
}

// fenceAll stands in for the `fence` / `fence.i` instruction pair the
// real activation sequence issues around the satp write. There is no
// instruction stream to order here, so it is a deliberate no-op.
func fenceAll() {}

// sfenceVMA stands in for `sfence.vma va` — a virtual-address scoped
// TLB invalidation. With no hardware TLB behind this software MMU there
// is nothing to flush; the call documents where a real backend would
// hook in.
func sfenceVMA(va uint64) {}
