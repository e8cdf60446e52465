package ext2

import "fmt"

// Extent header magic (§4.6 "verify magic 0xF30A").
const extentMagic = 0xF30A

// extentHeader is the 12-byte header at the start of the block-pointer
// array when FlagExtents is set.
type extentHeader struct {
	Magic     uint16
	Entries   uint16
	Max       uint16
	Depth     uint16
	Generation uint32
}

const extentHeaderSize = 12
const extentEntrySize = 12

// extent describes one contiguous run of logical-to-physical blocks.
type extent struct {
	LogicalBlock  uint32
	Length        uint16
	PhysStartHi   uint16
	PhysStartLo   uint32
}

func (e extent) physStart() uint64 {
	return uint64(e.PhysStartHi)<<32 | uint64(e.PhysStartLo)
}

// parseExtents reads the extent header and its entries out of the
// 60-byte block-pointer array (§4.6 "parse the extent header in the
// first 60 bytes of the block-pointer array").
func parseExtents(blockArray []byte) ([]extent, error) {
	if len(blockArray) < extentHeaderSize {
		return nil, fmt.Errorf("%w: extent header truncated", ErrCorrupt)
	}
	hdr := extentHeader{
		Magic:   byteOrder.Uint16(blockArray[0:2]),
		Entries: byteOrder.Uint16(blockArray[2:4]),
		Max:     byteOrder.Uint16(blockArray[4:6]),
		Depth:   byteOrder.Uint16(blockArray[6:8]),
	}
	if hdr.Magic != extentMagic {
		return nil, fmt.Errorf("%w: extent magic 0x%04x, want 0x%04x", ErrCorrupt, hdr.Magic, extentMagic)
	}
	if hdr.Depth != 0 {
		return nil, ErrMultiLevelExtent
	}

	extents := make([]extent, 0, hdr.Entries)
	for i := 0; i < int(hdr.Entries); i++ {
		off := extentHeaderSize + i*extentEntrySize
		if off+extentEntrySize > len(blockArray) {
			break
		}
		e := extent{
			LogicalBlock: byteOrder.Uint32(blockArray[off : off+4]),
			Length:       byteOrder.Uint16(blockArray[off+4 : off+6]),
			PhysStartHi:  byteOrder.Uint16(blockArray[off+6 : off+8]),
			PhysStartLo:  byteOrder.Uint32(blockArray[off+8 : off+12]),
		}
		extents = append(extents, e)
	}
	return extents, nil
}

// blockArrayBytes serializes the 15 uint32 direct-block pointers back
// into their on-disk byte layout (used to round-trip inode.Block into
// the raw array parseExtents expects).
func blockArrayBytes(block [inodeBlockPointers]uint32) []byte {
	buf := make([]byte, inodeBlockPointers*4)
	for i, v := range block {
		byteOrder.PutUint32(buf[i*4:i*4+4], v)
	}
	return buf
}
