package memory

import "fmt"

// Arena is the flat byte array standing in for physical RAM: this
// repository has no real hardware to address, so every "physical
// address" is an offset into Arena.Bytes relative to Base, the same way
// `rv64.Machine` backs guest RAM with a Go byte slice.
type Arena struct {
	Base  uint64
	Bytes []byte
}

// NewArena allocates a zeroed arena covering [base, base+size).
func NewArena(base, size uint64) *Arena {
	return &Arena{Base: base, Bytes: make([]byte, size)}
}

// offset validates and converts a physical address/length to a slice
// range within Bytes.
func (a *Arena) offset(pa, size uint64) (int, error) {
	if pa < a.Base || pa+size > a.Base+uint64(len(a.Bytes)) {
		return 0, fmt.Errorf("memory: address 0x%x (len %d) out of arena [0x%x, 0x%x)", pa, size, a.Base, a.Base+uint64(len(a.Bytes)))
	}
	return int(pa - a.Base), nil
}

// ReadAt copies size bytes starting at physical address pa.
func (a *Arena) ReadAt(pa, size uint64) ([]byte, error) {
	off, err := a.offset(pa, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, a.Bytes[off:off+int(size)])
	return out, nil
}

// WriteAt copies data to physical address pa.
func (a *Arena) WriteAt(pa uint64, data []byte) error {
	off, err := a.offset(pa, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(a.Bytes[off:off+len(data)], data)
	return nil
}

// Zero zeroes size bytes starting at physical address pa — every region
// handed out by the allocator is zeroed first (§4.2).
func (a *Arena) Zero(pa, size uint64) error {
	off, err := a.offset(pa, size)
	if err != nil {
		return err
	}
	clear(a.Bytes[off : off+int(size)])
	return nil
}

// Contains reports whether the whole [pa, pa+size) range lies in the arena.
func (a *Arena) Contains(pa, size uint64) bool {
	_, err := a.offset(pa, size)
	return err == nil
}
