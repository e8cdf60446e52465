// Package ext2 implements read/write access to an ext2 filesystem over
// a VirtIO block transport (§4.6): superblock/group-descriptor parsing,
// inode I/O, path resolution, and directory-entry maintenance. Group 0
// only, direct-block and single-level extent addressing only.
package ext2

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/elinos-go/elinos/internal/virtio"
)

var byteOrder = binary.LittleEndian

// Disk geometry constants (§4.6 "Detection").
const (
	SuperblockOffset = 1024 // byte offset of the superblock on disk
	SuperblockSize   = 1024
	MagicOffset      = 56
	Magic            = 0xEF53
)

// Superblock holds the on-disk fields this core reads and writes.
// Layout matches the real ext2 superblock; unused fields are skipped
// rather than modeled, since this core never touches them.
type Superblock struct {
	InodesCount     uint32 // offset 0
	BlocksCountLo   uint32 // offset 4
	RBlocksCountLo  uint32 // offset 8
	FreeBlocksLo    uint32 // offset 12
	FreeInodesCount uint32 // offset 16
	FirstDataBlock  uint32 // offset 20
	LogBlockSize    uint32 // offset 24
	// offsets 28..55 skipped
	Magic            uint16 // offset 56
	InodesPerGroup   uint32 // offset 40, read separately below
	RevLevel         uint32 // offset 76
	InodeSize        uint16 // offset 88
}

// BlockSize returns 1024 << s_log_block_size (§3 ext2 entities).
func (sb *Superblock) BlockSize() uint64 { return 1024 << sb.LogBlockSize }

// EffectiveInodeSize returns 128 for rev-0 filesystems, s_inode_size otherwise.
func (sb *Superblock) EffectiveInodeSize() uint16 {
	if sb.RevLevel == 0 {
		return 128
	}
	return sb.InodeSize
}

func parseSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < SuperblockSize {
		return nil, fmt.Errorf("ext2: superblock buffer too short (%d bytes)", len(buf))
	}
	sb := &Superblock{
		InodesCount:     byteOrder.Uint32(buf[0:4]),
		BlocksCountLo:   byteOrder.Uint32(buf[4:8]),
		RBlocksCountLo:  byteOrder.Uint32(buf[8:12]),
		FreeBlocksLo:    byteOrder.Uint32(buf[12:16]),
		FreeInodesCount: byteOrder.Uint32(buf[16:20]),
		FirstDataBlock:  byteOrder.Uint32(buf[20:24]),
		LogBlockSize:    byteOrder.Uint32(buf[24:28]),
		InodesPerGroup:  byteOrder.Uint32(buf[40:44]),
		Magic:           byteOrder.Uint16(buf[56:58]),
		RevLevel:        byteOrder.Uint32(buf[76:80]),
		InodeSize:       byteOrder.Uint16(buf[88:90]),
	}
	if sb.Magic != Magic {
		return nil, fmt.Errorf("%w: magic 0x%04x, want 0x%04x", ErrInvalidSuperblock, sb.Magic, Magic)
	}
	return sb, nil
}

func (sb *Superblock) marshal() []byte {
	buf := make([]byte, SuperblockSize)
	byteOrder.PutUint32(buf[0:4], sb.InodesCount)
	byteOrder.PutUint32(buf[4:8], sb.BlocksCountLo)
	byteOrder.PutUint32(buf[8:12], sb.RBlocksCountLo)
	byteOrder.PutUint32(buf[12:16], sb.FreeBlocksLo)
	byteOrder.PutUint32(buf[16:20], sb.FreeInodesCount)
	byteOrder.PutUint32(buf[20:24], sb.FirstDataBlock)
	byteOrder.PutUint32(buf[24:28], sb.LogBlockSize)
	byteOrder.PutUint32(buf[40:44], sb.InodesPerGroup)
	byteOrder.PutUint16(buf[56:58], sb.Magic)
	byteOrder.PutUint32(buf[76:80], sb.RevLevel)
	byteOrder.PutUint16(buf[88:90], sb.InodeSize)
	return buf
}

// ErrInvalidSuperblock is returned when the magic does not match.
var ErrInvalidSuperblock = errors.New("ext2: invalid superblock magic")

// disk is the narrow seam onto the block transport: sector-addressed
// read/write, matching the superblock manager's conversion of block
// numbers to sector ranges (§4.6 "Block I/O abstraction").
type disk interface {
	ReadSector(sector uint64, buf []byte) error
	WriteSector(sector uint64, buf []byte) error
}

// blockIO converts logical block numbers to sector ranges and
// reads/writes bounded byte buffers (§4.6 "the superblock manager
// converts a logical block number to a starting sector... reads/writes
// block_size/512 consecutive sectors").
type blockIO struct {
	dev       disk
	blockSize uint64
}

func (b *blockIO) sectorsPerBlock() uint64 { return b.blockSize / virtio.SectorSize }

func (b *blockIO) readBlock(blockNum uint64) ([]byte, error) {
	spb := b.sectorsPerBlock()
	start := blockNum * spb
	out := make([]byte, 0, b.blockSize)
	sector := make([]byte, virtio.SectorSize)
	for i := uint64(0); i < spb; i++ {
		if err := b.dev.ReadSector(start+i, sector); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		out = append(out, sector...)
	}
	return out, nil
}

func (b *blockIO) writeBlock(blockNum uint64, data []byte) error {
	spb := b.sectorsPerBlock()
	start := blockNum * spb
	for i := uint64(0); i < spb; i++ {
		lo := i * virtio.SectorSize
		hi := lo + virtio.SectorSize
		var sector []byte
		if hi <= uint64(len(data)) {
			sector = data[lo:hi]
		} else {
			sector = make([]byte, virtio.SectorSize)
			if lo < uint64(len(data)) {
				copy(sector, data[lo:])
			}
		}
		if err := b.dev.WriteSector(start+i, sector); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
	}
	return nil
}

// ErrIO wraps a transport-level failure.
var ErrIO = errors.New("ext2: block I/O error")
