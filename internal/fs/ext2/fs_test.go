package ext2

import (
	"testing"

	"github.com/elinos-go/elinos/internal/fs"
)

// memDisk is an in-memory sector-addressed disk for exercising the
// filesystem logic without a real VirtIO transport.
type memDisk struct {
	sectors map[uint64][]byte
}

func newMemDisk() *memDisk { return &memDisk{sectors: make(map[uint64][]byte)} }

func (d *memDisk) ReadSector(sector uint64, buf []byte) error {
	if data, ok := d.sectors[sector]; ok {
		copy(buf, data)
	} else {
		for i := range buf {
			buf[i] = 0
		}
	}
	return nil
}

func (d *memDisk) WriteSector(sector uint64, buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	d.sectors[sector] = cp
	return nil
}

const testBlockSize = 1024
const testInodesPerGroup = 64
const testInodeSize = 128

// buildFilesystem constructs a minimal valid ext2 image: superblock,
// group descriptor, bitmaps, inode table, and a root directory
// containing "." and "..".
func buildFilesystem(t *testing.T) *memDisk {
	t.Helper()
	disk := newMemDisk()

	sb := &Superblock{
		InodesCount:     testInodesPerGroup,
		BlocksCountLo:   256,
		FreeBlocksLo:    200,
		FreeInodesCount: testInodesPerGroup - 2,
		FirstDataBlock:  6, // blocks 1-5 hold superblock/gd/bitmaps/inode table
		LogBlockSize:    0, // 1024-byte blocks
		InodesPerGroup:  testInodesPerGroup,
		Magic:           Magic,
		RevLevel:        1,
		InodeSize:       testInodeSize,
	}
	sbBytes := sb.marshal()
	writeAt(disk, SuperblockOffset, sbBytes)

	gd := &GroupDescriptor{
		BlockBitmapLo: 3,
		InodeBitmapLo: 4,
		InodeTableLo:  5,
		FreeBlocksLo:  200,
		FreeInodesLo:  testInodesPerGroup - 2,
	}
	gdBlockBytes := make([]byte, testBlockSize)
	copy(gdBlockBytes, gd.marshal())
	writeBlockRaw(disk, 2, gdBlockBytes) // block 2, since 1024-byte blocks

	blockBitmap := make([]byte, testBlockSize)
	setBit(blockBitmap, 0) // block (FirstDataBlock + 0) == block 6, reserved for root dir
	writeBlockRaw(disk, 3, blockBitmap)

	inodeBitmap := make([]byte, testBlockSize)
	setBit(inodeBitmap, 0) // inode 1 reserved (unused placeholder)
	setBit(inodeBitmap, 1) // inode 2 = root
	writeBlockRaw(disk, 4, inodeBitmap)

	rootInode := &Inode{Mode: ModeDir | 0o755, LinksCount: 2}
	rootInode.Block[0] = 6 // FirstDataBlock(6) + bit 0

	inodeTableBlock := make([]byte, testBlockSize)
	copy(inodeTableBlock[testInodeSize:], rootInode.marshal(testInodeSize)) // inode 2 at local index 1
	writeBlockRaw(disk, 5, inodeTableBlock)

	rootDirBlock := make([]byte, testBlockSize)
	initDirectoryBlock(rootDirBlock, RootInode, ".", FileTypeDirectory)
	writeBlockRaw(disk, 6, rootDirBlock)

	return disk
}

func writeAt(disk *memDisk, byteOffset uint64, data []byte) {
	sector := byteOffset / 512
	for i := 0; i < len(data); i += 512 {
		end := i + 512
		if end > len(data) {
			end = len(data)
		}
		buf := make([]byte, 512)
		copy(buf, data[i:end])
		disk.WriteSector(sector+uint64(i/512), buf)
	}
}

func writeBlockRaw(disk *memDisk, blockNum uint64, data []byte) {
	writeAt(disk, blockNum*testBlockSize, data)
}

func TestMountParsesSuperblockAndGroupDescriptor(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if f.sb.BlockSize() != testBlockSize {
		t.Fatalf("block size = %d, want %d", f.sb.BlockSize(), testBlockSize)
	}
	if f.gd.InodeTableLo != 5 {
		t.Fatalf("inode table block = %d, want 5", f.gd.InodeTableLo)
	}
}

func TestMountRejectsBadMagic(t *testing.T) {
	disk := newMemDisk()
	if _, err := Mount(disk); err == nil {
		t.Fatalf("expected error for all-zero disk")
	}
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	if err := f.Create("hello.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.WriteFile("hello.txt", []byte("hello, ext2")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := f.ReadFile("hello.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello, ext2" {
		t.Fatalf("ReadFile = %q, want %q", data, "hello, ext2")
	}
}

func TestListShowsCreatedFile(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := f.Create("a.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, err := f.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Name == "a.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a.txt in listing, got %+v", entries)
	}
}

func TestRemoveDeletesEntry(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := f.Create("gone.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.Remove("gone.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := f.Stat("gone.txt"); err == nil {
		t.Fatalf("expected Stat to fail after Remove")
	}
}

func TestMkdirCreatesSelfAndParentEntries(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := f.Mkdir("sub"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	entries, err := f.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var subInode uint32
	for _, e := range entries {
		if e.Name == "sub" {
			if !e.IsDir {
				t.Fatalf("expected sub to be a directory")
			}
			subInode = e.Inode
		}
	}
	if subInode == 0 {
		t.Fatalf("expected sub in listing, got %+v", entries)
	}

	children, err := f.List("sub")
	if err != nil {
		t.Fatalf("List(sub): %v", err)
	}
	if len(children) != 0 {
		t.Fatalf("expected new directory to be empty of visible entries, got %+v", children)
	}

	dirInode, err := f.readInode(subInode)
	if err != nil {
		t.Fatalf("readInode: %v", err)
	}
	block, err := f.firstBlock(dirInode)
	if err != nil {
		t.Fatalf("firstBlock: %v", err)
	}
	dotEntries := scanDirEntries(block)
	if len(dotEntries) != 2 || dotEntries[0].Name != "." || dotEntries[1].Name != ".." {
		t.Fatalf("expected [. ..] entries, got %+v", dotEntries)
	}
	if dotEntries[0].Inode != subInode {
		t.Fatalf(". inode = %d, want %d", dotEntries[0].Inode, subInode)
	}
	if dotEntries[1].Inode != RootInode {
		t.Fatalf(".. inode = %d, want %d", dotEntries[1].Inode, RootInode)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := f.Create("dup.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.Create("dup.txt"); err != fs.ErrExists {
		t.Fatalf("second Create err = %v, want fs.ErrExists", err)
	}
}

func TestRemoveRejectsNonEmptyDirectory(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := f.Mkdir("sub"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := f.Create("sub/child.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.Remove("sub"); err != fs.ErrNotEmpty {
		t.Fatalf("Remove err = %v, want fs.ErrNotEmpty", err)
	}
	if err := f.Remove("sub/child.txt"); err != nil {
		t.Fatalf("Remove child: %v", err)
	}
	if err := f.Remove("sub"); err != nil {
		t.Fatalf("Remove empty dir: %v", err)
	}
}

func TestRemoveFreesBlockAndInodeForReuse(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	freeBlocksBefore := f.gd.FreeBlocksLo
	freeInodesBefore := f.gd.FreeInodesLo

	if err := f.Create("a.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.WriteFile("a.txt", []byte("x")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := f.Remove("a.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if f.gd.FreeBlocksLo != freeBlocksBefore {
		t.Fatalf("FreeBlocksLo = %d, want %d restored", f.gd.FreeBlocksLo, freeBlocksBefore)
	}
	if f.gd.FreeInodesLo != freeInodesBefore {
		t.Fatalf("FreeInodesLo = %d, want %d restored", f.gd.FreeInodesLo, freeInodesBefore)
	}

	if err := f.Create("b.txt"); err != nil {
		t.Fatalf("Create after free: %v", err)
	}
}

func TestTruncateShrinksAndIsNoopAtSameSize(t *testing.T) {
	disk := buildFilesystem(t)
	f, err := Mount(disk)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := f.Create("big.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.WriteFile("big.txt", []byte("0123456789")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := f.Truncate("big.txt", 10); err != nil {
		t.Fatalf("Truncate no-op: %v", err)
	}
	st, err := f.Stat("big.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Size != 10 {
		t.Fatalf("size after no-op truncate = %d, want 10", st.Size)
	}

	if err := f.Truncate("big.txt", 4); err != nil {
		t.Fatalf("Truncate shrink: %v", err)
	}
	st, err = f.Stat("big.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if st.Size != 4 {
		t.Fatalf("size after shrink = %d, want 4", st.Size)
	}
	data, err := f.ReadFile("big.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "0123" {
		t.Fatalf("ReadFile after truncate = %q, want %q", data, "0123")
	}

	if err := f.Truncate("big.txt", 100); err != fs.ErrNotSupported {
		t.Fatalf("Truncate grow err = %v, want fs.ErrNotSupported", err)
	}
}

func TestScanDirEntriesStopsOnCorruptRecLen(t *testing.T) {
	block := make([]byte, testBlockSize)
	writeDirEntry(block, 0, 2, 12, ".", FileTypeDirectory)
	// Corrupt the next entry's rec_len to exceed the block.
	byteOrder.PutUint16(block[12+4:12+6], 5000)

	entries := scanDirEntries(block)
	if len(entries) != 1 {
		t.Fatalf("expected scan to stop after 1 entry, got %d", len(entries))
	}
}

func TestAddDirEntrySplitsExistingEntry(t *testing.T) {
	block := make([]byte, testBlockSize)
	initDirectoryBlock(block, 2, ".", FileTypeDirectory) // rec_len spans whole block

	ok, err := addDirEntry(block, 5, "newfile", FileTypeRegular)
	if err != nil {
		t.Fatalf("addDirEntry: %v", err)
	}
	if !ok {
		t.Fatalf("expected split to succeed")
	}

	entries := scanDirEntries(block)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after split, got %d: %+v", len(entries), entries)
	}
	if entries[1].Name != "newfile" || entries[1].Inode != 5 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestFindFreeBit(t *testing.T) {
	bitmap := []byte{0b1111_1111, 0b0000_0001}
	idx, ok := findFreeBit(bitmap, 16)
	if !ok || idx != 9 {
		t.Fatalf("expected free bit 9, got %d ok=%v", idx, ok)
	}
}
