package ext2

// GroupDescriptor locates the inode bitmap, block bitmap, and inode
// table for one block group (§3 "group descriptor").
type GroupDescriptor struct {
	BlockBitmapLo   uint32 // offset 0
	InodeBitmapLo   uint32 // offset 4
	InodeTableLo    uint32 // offset 8
	FreeBlocksLo    uint16 // offset 12
	FreeInodesLo    uint16 // offset 14
	UsedDirsLo      uint16 // offset 16
}

const groupDescriptorSize = 32

func parseGroupDescriptor(buf []byte) *GroupDescriptor {
	return &GroupDescriptor{
		BlockBitmapLo: byteOrder.Uint32(buf[0:4]),
		InodeBitmapLo: byteOrder.Uint32(buf[4:8]),
		InodeTableLo:  byteOrder.Uint32(buf[8:12]),
		FreeBlocksLo:  byteOrder.Uint16(buf[12:14]),
		FreeInodesLo:  byteOrder.Uint16(buf[14:16]),
		UsedDirsLo:    byteOrder.Uint16(buf[16:18]),
	}
}

func (gd *GroupDescriptor) marshal() []byte {
	buf := make([]byte, groupDescriptorSize)
	byteOrder.PutUint32(buf[0:4], gd.BlockBitmapLo)
	byteOrder.PutUint32(buf[4:8], gd.InodeBitmapLo)
	byteOrder.PutUint32(buf[8:12], gd.InodeTableLo)
	byteOrder.PutUint16(buf[12:14], gd.FreeBlocksLo)
	byteOrder.PutUint16(buf[14:16], gd.FreeInodesLo)
	byteOrder.PutUint16(buf[16:18], gd.UsedDirsLo)
	return buf
}

// groupDescriptorBlock returns the block holding group descriptor 0:
// the block following the superblock for 1024-byte blocks, else block 1
// (§4.6 "Initialization").
func groupDescriptorBlock(blockSize uint64) uint64 {
	if blockSize == 1024 {
		return 2
	}
	return 1
}
