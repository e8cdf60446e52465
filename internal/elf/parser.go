package elf

import (
	"bytes"
	stdelf "debug/elf"
	"fmt"
)

// parseHeader opens data as an ELF64 image and enforces the acceptance
// criteria of §4.7: class = ELFCLASS64, data = little-endian, machine =
// RISC-V (0xF3), type in {EXEC, DYN}. debug/elf already reads the
// header and program headers field-by-field without assuming host
// alignment.
func parseHeader(data []byte) (*stdelf.File, error) {
	f, err := stdelf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	if f.Class != stdelf.ELFCLASS64 {
		return nil, fmt.Errorf("%w: class=%v", ErrUnsupportedClass, f.Class)
	}
	if f.Data != stdelf.ELFDATA2LSB {
		return nil, fmt.Errorf("%w: data=%v", ErrUnsupportedEndian, f.Data)
	}
	if f.Machine != stdelf.EM_RISCV {
		return nil, fmt.Errorf("%w: machine=%v", ErrUnsupportedMachine, f.Machine)
	}
	if f.Type != stdelf.ET_EXEC && f.Type != stdelf.ET_DYN {
		return nil, fmt.Errorf("%w: type=%v", ErrUnsupportedType, f.Type)
	}

	return f, nil
}

// IsELF reports whether data begins with the four-byte ELF magic,
// without validating class/endianness/machine (§4.1 "searches ... for
// the four-byte sequence 7F 45 4C 46").
func IsELF(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[0:4], []byte{0x7f, 'E', 'L', 'F'})
}
