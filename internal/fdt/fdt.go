// Package fdt parses just enough of a flattened device tree (the format
// QEMU's virt machine hands a RISC-V kernel in a1) to discover the main
// RAM region — everything else in a DTB is ignored.
//
// The token layout (FDT_BEGIN_NODE/END_NODE/PROP/NOP/END, big-endian,
// 4-byte aligned) mirrors the flattened tree FDTBuilder
// (internal/hv/riscv/rv64/fdt.go) and ccvm's Fdt builder emit — this
// package walks the same structure in the opposite direction.
package fdt

import (
	"encoding/binary"
	"errors"
)

const (
	magic        = 0xd00dfeed
	tokenBegNode = 0x00000001
	tokenEndNode = 0x00000002
	tokenProp    = 0x00000003
	tokenNOP     = 0x00000004
	tokenEnd     = 0x00000009
)

// ErrBadMagic is returned when the blob does not begin with the FDT magic.
var ErrBadMagic = errors.New("fdt: bad magic")

type header struct {
	Magic            uint32
	TotalSize        uint32
	OffDtStruct      uint32
	OffDtStrings     uint32
	OffMemRsvmap     uint32
	Version          uint32
	LastCompVersion  uint32
	BootCpuidPhys    uint32
	SizeDtStrings    uint32
	SizeDtStruct     uint32
}

// MemoryRegion is a (base, size) pair discovered in a /memory node's "reg"
// property.
type MemoryRegion struct {
	Base uint64
	Size uint64
}

// FindMemoryRegions walks the flattened device tree in blob and returns
// the "reg" property of every node whose name begins with "memory@" (the
// QEMU virt convention). A node's device_type property is not consulted.
func FindMemoryRegions(blob []byte) ([]MemoryRegion, error) {
	if len(blob) < 40 {
		return nil, ErrBadMagic
	}
	var hdr header
	hdr.Magic = binary.BigEndian.Uint32(blob[0:4])
	if hdr.Magic != magic {
		return nil, ErrBadMagic
	}
	hdr.OffDtStruct = binary.BigEndian.Uint32(blob[8:12])
	hdr.OffDtStrings = binary.BigEndian.Uint32(blob[12:16])
	hdr.SizeDtStruct = binary.BigEndian.Uint32(blob[36:40])

	structStart := int(hdr.OffDtStruct)
	structEnd := structStart + int(hdr.SizeDtStruct)
	if structEnd > len(blob) {
		structEnd = len(blob)
	}
	strings := blob[hdr.OffDtStrings:]

	var regions []MemoryRegion
	off := structStart
	inMemoryNode := false
	memoryDepth := 0
	depth := 0

	readCStr := func(b []byte) string {
		n := 0
		for n < len(b) && b[n] != 0 {
			n++
		}
		return string(b[:n])
	}

	for off+4 <= structEnd {
		tok := binary.BigEndian.Uint32(blob[off : off+4])
		off += 4
		switch tok {
		case tokenBegNode:
			name := readCStr(blob[off:structEnd])
			off += len(name) + 1
			off = align4(off)
			depth++
			if len(name) >= 7 && name[:7] == "memory@" {
				inMemoryNode = true
				memoryDepth = depth
			}
		case tokenEndNode:
			if inMemoryNode && depth == memoryDepth {
				inMemoryNode = false
			}
			depth--
		case tokenProp:
			if off+8 > structEnd {
				return regions, nil
			}
			propLen := binary.BigEndian.Uint32(blob[off : off+4])
			nameOff := binary.BigEndian.Uint32(blob[off+4 : off+8])
			off += 8
			propName := readCStr(strings[nameOff:])
			propData := blob[off : off+int(propLen)]
			off += int(propLen)
			off = align4(off)

			if inMemoryNode && propName == "reg" {
				regions = append(regions, parseReg(propData)...)
			}
		case tokenNOP:
			// no payload
		case tokenEnd:
			return regions, nil
		default:
			return regions, nil
		}
	}
	return regions, nil
}

// parseReg interprets a "reg" property as a sequence of (address,size)
// pairs using #address-cells=2, #size-cells=2 (the QEMU virt default).
func parseReg(data []byte) []MemoryRegion {
	const pairSize = 16
	var out []MemoryRegion
	for i := 0; i+pairSize <= len(data); i += pairSize {
		base := binary.BigEndian.Uint64(data[i : i+8])
		size := binary.BigEndian.Uint64(data[i+8 : i+16])
		out = append(out, MemoryRegion{Base: base, Size: size})
	}
	return out
}

func align4(v int) int {
	return (v + 3) &^ 3
}
