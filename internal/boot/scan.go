package boot

import (
	"bytes"
	stdelf "debug/elf"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// SearchRegion is one candidate memory window the bootloader scans for
// a kernel ELF magic (§4.1 "searches a configured list of memory
// regions").
type SearchRegion struct {
	Base uint64
	Size uint64
}

// scanAlign is the byte stride used when probing a search region for
// the ELF magic; kernel images are always at least word-aligned, so
// this avoids an exhaustive byte-by-byte scan of multi-megabyte RAM
// windows.
const scanAlign = 4

// findCandidates returns every scanAlign-aligned offset within data
// where the four-byte ELF magic (§4.1 "7F 45 4C 46") appears.
func findCandidates(data []byte) []int {
	var hits []int
	for i := 0; i+len(elfMagic) <= len(data); i += scanAlign {
		if bytes.Equal(data[i:i+len(elfMagic)], elfMagic) {
			hits = append(hits, i)
		}
	}
	return hits
}

// parseCandidate validates data as a 64-bit little-endian RISC-V ELF
// image, the bootloader's acceptance check before trusting any program
// header (§4.1 "verifies ELF class = 64-bit, endianness =
// little-endian, and machine = RISC-V").
func parseCandidate(data []byte) (*stdelf.File, error) {
	f, err := stdelf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidHeader
	}
	if f.Class != stdelf.ELFCLASS64 || f.Data != stdelf.ELFDATA2LSB || f.Machine != stdelf.EM_RISCV {
		return nil, ErrInvalidHeader
	}
	if f.Type != stdelf.ET_EXEC && f.Type != stdelf.ET_DYN {
		return nil, ErrInvalidHeader
	}
	return f, nil
}
