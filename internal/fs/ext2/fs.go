package ext2

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elinos-go/elinos/internal/fs"
)

// RootInode is the fixed inode number of the filesystem root (§4.6
// "starting from inode 2").
const RootInode = 2

// maxSaneBlockNumber rejects obviously corrupt block pointers (§4.6
// "Block numbers > 1 000 000 are treated as corrupt and skipped").
const maxSaneBlockNumber = 1_000_000

// FS is the ext2 filesystem driver: one superblock, one group
// descriptor (group 0 only), and the block transport beneath them.
type FS struct {
	io      *blockIO
	sb      *Superblock
	gd      *GroupDescriptor
	gdBlock uint64
}

// Mount reads and validates the superblock and group descriptor 0 off
// dev, matching the bootstrap sequence in §4.6 ("Detection",
// "Initialization"). Errors are translated to the fs.Filesystem
// sentinels (an unrecognized magic surfaces as fs.ErrNotInitialized)
// since callers outside this package never see ext2-internal error
// values.
func Mount(dev disk) (*FS, error) {
	probe := &blockIO{dev: dev, blockSize: SuperblockSize}
	raw, err := probe.readRawRange(SuperblockOffset, SuperblockSize)
	if err != nil {
		return nil, translateErr(err)
	}
	sb, err := parseSuperblock(raw)
	if err != nil {
		return nil, translateErr(err)
	}

	fsio := &blockIO{dev: dev, blockSize: sb.BlockSize()}
	gdBlock := groupDescriptorBlock(sb.BlockSize())
	gdData, err := fsio.readBlock(gdBlock)
	if err != nil {
		return nil, translateErr(err)
	}
	if len(gdData) < groupDescriptorSize {
		return nil, translateErr(fmt.Errorf("%w: group descriptor block truncated", ErrCorrupt))
	}
	gd := parseGroupDescriptor(gdData)

	return &FS{io: fsio, sb: sb, gd: gd, gdBlock: gdBlock}, nil
}

// readRawRange reads n bytes starting at an arbitrary byte offset by
// converting to whole sectors and trimming, used only for the
// superblock's fixed 1024-byte offset before block size is known.
func (b *blockIO) readRawRange(byteOffset uint64, n int) ([]byte, error) {
	startSector := byteOffset / 512
	sectors := (n + 511) / 512
	sector := make([]byte, 512)
	out := make([]byte, 0, sectors*512)
	for i := 0; i < sectors; i++ {
		if err := b.dev.ReadSector(startSector+uint64(i), sector); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIO, err)
		}
		out = append(out, sector...)
	}
	return out[:n], nil
}

func (f *FS) inodesPerGroup() uint32 { return f.sb.InodesPerGroup }

// readInode implements §4.6 "Inode I/O".
func (f *FS) readInode(inodeNum uint32) (*Inode, error) {
	_, localIndex, err := inodeLocation(inodeNum, f.inodesPerGroup())
	if err != nil {
		return nil, err
	}

	inodeSize := uint64(f.sb.EffectiveInodeSize())
	blockSize := f.sb.BlockSize()
	inodeOffset := uint64(localIndex) * inodeSize
	blockOffset := inodeOffset / blockSize
	offsetInBlock := inodeOffset % blockSize

	blockNum := uint64(f.gd.InodeTableLo) + blockOffset
	blockData, err := f.io.readBlock(blockNum)
	if err != nil {
		return nil, err
	}
	if offsetInBlock+inodeSize > uint64(len(blockData)) {
		return nil, fmt.Errorf("%w: inode %d out of block bounds", ErrCorrupt, inodeNum)
	}
	return parseInode(blockData[offsetInBlock:])
}

func (f *FS) writeInode(inodeNum uint32, in *Inode) error {
	_, localIndex, err := inodeLocation(inodeNum, f.inodesPerGroup())
	if err != nil {
		return err
	}

	inodeSize := f.sb.EffectiveInodeSize()
	blockSize := f.sb.BlockSize()
	inodeOffset := uint64(localIndex) * uint64(inodeSize)
	blockOffset := inodeOffset / blockSize
	offsetInBlock := inodeOffset % blockSize

	blockNum := uint64(f.gd.InodeTableLo) + blockOffset
	blockData, err := f.io.readBlock(blockNum)
	if err != nil {
		return err
	}
	if offsetInBlock+uint64(inodeSize) > uint64(len(blockData)) {
		return fmt.Errorf("%w: inode %d out of block bounds", ErrCorrupt, inodeNum)
	}
	copy(blockData[offsetInBlock:], in.marshal(inodeSize))
	return f.io.writeBlock(blockNum, blockData)
}

// splitPath splits a slash-separated path into non-empty components.
func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// resolve walks path from the root inode, reading each directory's
// first block and matching the next component by name (§4.6 "Path
// resolution").
func (f *FS) resolve(path string) (inodeNum uint32, inode *Inode, err error) {
	inodeNum = RootInode
	inode, err = f.readInode(inodeNum)
	if err != nil {
		return 0, nil, err
	}

	for _, component := range splitPath(path) {
		if !inode.IsDirectory() {
			return 0, nil, ErrNotADirectory
		}
		child, found, err := f.lookupInDirectory(inode, component)
		if err != nil {
			return 0, nil, err
		}
		if !found {
			return 0, nil, ErrFileNotFound
		}
		childInode, err := f.readInode(child)
		if err != nil {
			return 0, nil, err
		}
		inodeNum, inode = child, childInode
	}
	return inodeNum, inode, nil
}

func (f *FS) lookupInDirectory(dirInode *Inode, name string) (uint32, bool, error) {
	block, err := f.firstBlock(dirInode)
	if err != nil {
		return 0, false, err
	}
	for _, e := range scanDirEntries(block) {
		if e.Inode != 0 && e.Name == name {
			return e.Inode, true, nil
		}
	}
	return 0, false, nil
}

// firstBlock returns the contents of a directory's first direct block
// (§4.6 "scan directory entries in its first direct block").
func (f *FS) firstBlock(in *Inode) ([]byte, error) {
	if in.Block[0] == 0 {
		return nil, fmt.Errorf("%w: directory has no allocated block", ErrCorrupt)
	}
	return f.io.readBlock(uint64(in.Block[0]))
}

// List implements fs.Filesystem.
func (f *FS) List(path string) ([]fs.FileEntry, error) {
	_, inode, err := f.resolve(path)
	if err != nil {
		return nil, translateErr(err)
	}
	if !inode.IsDirectory() {
		return nil, fs.ErrNotADir
	}
	block, err := f.firstBlock(inode)
	if err != nil {
		return nil, translateErr(err)
	}

	var out []fs.FileEntry
	for _, e := range scanDirEntries(block) {
		if e.Inode == 0 || e.Name == "." || e.Name == ".." {
			continue
		}
		childInode, err := f.readInode(e.Inode)
		if err != nil {
			continue
		}
		out = append(out, fs.FileEntry{
			Name:  e.Name,
			Inode: e.Inode,
			Size:  childInode.Size(),
			IsDir: childInode.IsDirectory(),
		})
	}
	return out, nil
}

// Stat implements fs.Filesystem.
func (f *FS) Stat(path string) (fs.FileEntry, error) {
	inodeNum, inode, err := f.resolve(path)
	if err != nil {
		return fs.FileEntry{}, translateErr(err)
	}
	name := path
	if parts := splitPath(path); len(parts) > 0 {
		name = parts[len(parts)-1]
	}
	return fs.FileEntry{
		Name:  name,
		Inode: inodeNum,
		Size:  inode.Size(),
		IsDir: inode.IsDirectory(),
	}, nil
}

// ReadFile implements §4.6 "Reading file data".
func (f *FS) ReadFile(path string) ([]byte, error) {
	_, inode, err := f.resolve(path)
	if err != nil {
		return nil, translateErr(err)
	}
	if inode.IsDirectory() {
		return nil, fs.ErrIsADir
	}
	return f.readInodeData(inode)
}

func (f *FS) readInodeData(inode *Inode) ([]byte, error) {
	size := inode.Size()
	blockSize := f.sb.BlockSize()

	if inode.HasExtents() {
		extents, err := parseExtents(blockArrayBytes(inode.Block))
		if err != nil {
			return nil, translateErr(err)
		}
		out := make([]byte, 0, size)
		for _, e := range extents {
			for i := uint16(0); i < e.Length; i++ {
				blockNum := e.physStart() + uint64(i)
				if blockNum > maxSaneBlockNumber {
					continue
				}
				block, err := f.io.readBlock(blockNum)
				if err != nil {
					return nil, translateErr(err)
				}
				out = append(out, block...)
			}
		}
		return truncateTo(out, size), nil
	}

	out := make([]byte, 0, size)
	for _, ptr := range inode.Block {
		if ptr == 0 || uint64(len(out)) >= size {
			break
		}
		if uint64(ptr) > maxSaneBlockNumber {
			continue
		}
		block, err := f.io.readBlock(uint64(ptr))
		if err != nil {
			return nil, translateErr(err)
		}
		out = append(out, block...)
	}
	_ = blockSize
	return truncateTo(out, size), nil
}

func truncateTo(data []byte, size uint64) []byte {
	if uint64(len(data)) > size {
		return data[:size]
	}
	return data
}

// WriteFile implements §4.6 "Writing file data": offset is always 0.
func (f *FS) WriteFile(path string, data []byte) error {
	inodeNum, inode, err := f.resolve(path)
	if err != nil {
		return translateErr(err)
	}
	if inode.IsDirectory() {
		return fs.ErrIsADir
	}
	if inode.HasExtents() {
		return translateErr(ErrNotWritable)
	}

	var block []byte
	if inode.Block[0] == 0 {
		blockNum, err := f.allocateBlock()
		if err != nil {
			return translateErr(err)
		}
		inode.Block[0] = uint32(blockNum)
		block = make([]byte, f.sb.BlockSize())
	} else {
		block, err = f.io.readBlock(uint64(inode.Block[0]))
		if err != nil {
			return translateErr(err)
		}
	}

	n := copy(block, data)
	for i := n; i < len(block); i++ {
		block[i] = 0
	}
	if err := f.io.writeBlock(uint64(inode.Block[0]), block); err != nil {
		return translateErr(err)
	}

	inode.SetSize(uint64(len(data)))
	if err := f.writeInode(inodeNum, inode); err != nil {
		return translateErr(err)
	}
	return nil
}

// allocateBlock finds a free bit in the block bitmap, marks it used,
// decrements the group descriptor's free block count, and returns the
// corresponding block number (§4.6 "Inode and block allocation").
func (f *FS) allocateBlock() (uint64, error) {
	bitmap, err := f.io.readBlock(uint64(f.gd.BlockBitmapLo))
	if err != nil {
		return 0, err
	}
	idx, ok := findFreeBit(bitmap, int(f.sb.BlocksCountLo))
	if !ok {
		return 0, ErrFilesystemFull
	}
	setBit(bitmap, idx)
	if err := f.io.writeBlock(uint64(f.gd.BlockBitmapLo), bitmap); err != nil {
		return 0, err
	}
	f.gd.FreeBlocksLo--
	if err := f.writeGroupDescriptor(); err != nil {
		return 0, err
	}
	return uint64(idx) + uint64(f.sb.FirstDataBlock), nil
}

func (f *FS) allocateInode() (uint32, error) {
	bitmap, err := f.io.readBlock(uint64(f.gd.InodeBitmapLo))
	if err != nil {
		return 0, err
	}
	idx, ok := findFreeBit(bitmap, int(f.sb.InodesPerGroup))
	if !ok {
		return 0, ErrFilesystemFull
	}
	setBit(bitmap, idx)
	if err := f.io.writeBlock(uint64(f.gd.InodeBitmapLo), bitmap); err != nil {
		return 0, err
	}
	f.gd.FreeInodesLo--
	if err := f.writeGroupDescriptor(); err != nil {
		return 0, err
	}
	return uint32(idx) + 1, nil
}

// freeBlock clears blockNum's bit in the block bitmap and increments the
// group descriptor's free block count (§4.6 "Deallocation clears the
// bit and increments the counters").
func (f *FS) freeBlock(blockNum uint64) error {
	if blockNum < uint64(f.sb.FirstDataBlock) {
		return fmt.Errorf("%w: block %d below first data block", ErrCorrupt, blockNum)
	}
	idx := int(blockNum - uint64(f.sb.FirstDataBlock))
	bitmap, err := f.io.readBlock(uint64(f.gd.BlockBitmapLo))
	if err != nil {
		return err
	}
	clearBit(bitmap, idx)
	if err := f.io.writeBlock(uint64(f.gd.BlockBitmapLo), bitmap); err != nil {
		return err
	}
	f.gd.FreeBlocksLo++
	return f.writeGroupDescriptor()
}

// freeInode clears inodeNum's bit in the inode bitmap and increments the
// group descriptor's free inode count.
func (f *FS) freeInode(inodeNum uint32) error {
	idx := int(inodeNum - 1)
	bitmap, err := f.io.readBlock(uint64(f.gd.InodeBitmapLo))
	if err != nil {
		return err
	}
	clearBit(bitmap, idx)
	if err := f.io.writeBlock(uint64(f.gd.InodeBitmapLo), bitmap); err != nil {
		return err
	}
	f.gd.FreeInodesLo++
	return f.writeGroupDescriptor()
}

// writeGroupDescriptor persists the in-memory group descriptor back to
// its block, used whenever the free block/inode counts change.
func (f *FS) writeGroupDescriptor() error {
	block, err := f.io.readBlock(f.gdBlock)
	if err != nil {
		return err
	}
	copy(block, f.gd.marshal())
	return f.io.writeBlock(f.gdBlock, block)
}

// freeInodeBlocks releases the direct data block this core's own
// allocator ever hands out for a file or directory. Extent-addressed
// files are only ever read, never allocated by this core, so their
// blocks are not bitmap-tracked here and are left alone.
func (f *FS) freeInodeBlocks(inode *Inode) error {
	if inode.HasExtents() || inode.Block[0] == 0 {
		return nil
	}
	return f.freeBlock(uint64(inode.Block[0]))
}

// Create implements fs.Filesystem: makes an empty regular file at path.
func (f *FS) Create(path string) error {
	dirInodeNum, dirInode, name, err := f.resolveParentForInsert(path)
	if err != nil {
		return err
	}

	newInodeNum, err := f.allocateInode()
	if err != nil {
		return translateErr(err)
	}
	newInode := &Inode{Mode: ModeRegular | 0o644, LinksCount: 1}
	if err := f.writeInode(newInodeNum, newInode); err != nil {
		return translateErr(err)
	}

	return f.linkIntoDirectory(dirInodeNum, dirInode, newInodeNum, name, FileTypeRegular)
}

// Mkdir implements fs.Filesystem (§4.6 "Directory creation"): allocates
// an inode with directory mode, allocates a block for its contents,
// writes "." and ".." into that block, then inserts the new name into
// the parent directory via the same add-entry protocol Create uses.
func (f *FS) Mkdir(path string) error {
	dirInodeNum, dirInode, name, err := f.resolveParentForInsert(path)
	if err != nil {
		return err
	}

	newInodeNum, err := f.allocateInode()
	if err != nil {
		return translateErr(err)
	}
	blockNum, err := f.allocateBlock()
	if err != nil {
		return translateErr(err)
	}

	newInode := &Inode{Mode: ModeDir | 0o755, LinksCount: 2}
	newInode.Block[0] = uint32(blockNum)
	if err := f.writeInode(newInodeNum, newInode); err != nil {
		return translateErr(err)
	}

	block := make([]byte, f.sb.BlockSize())
	initDirectoryBlockSelf(block, newInodeNum, dirInodeNum)
	if err := f.io.writeBlock(blockNum, block); err != nil {
		return translateErr(err)
	}

	return f.linkIntoDirectory(dirInodeNum, dirInode, newInodeNum, name, FileTypeDirectory)
}

// resolveParentForInsert resolves path's parent directory and validates
// the leaf name for a new entry, shared by Create and Mkdir: the parent
// must exist and be a directory, the name must fit ext2's NAME_LEN, and
// no existing entry may already claim it (§4.6's file-exists failure
// case).
func (f *FS) resolveParentForInsert(path string) (dirInodeNum uint32, dirInode *Inode, name string, err error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return 0, nil, "", fs.ErrInvalidPath
	}
	name = parts[len(parts)-1]
	if len(name) > maxNameLen {
		return 0, nil, "", fs.ErrNameTooLong
	}
	dirPath := strings.Join(parts[:len(parts)-1], "/")

	dirInodeNum, dirInode, err = f.resolve(dirPath)
	if err != nil {
		return 0, nil, "", translateErr(err)
	}
	if !dirInode.IsDirectory() {
		return 0, nil, "", fs.ErrNotADir
	}
	_, found, err := f.lookupInDirectory(dirInode, name)
	if err != nil {
		return 0, nil, "", translateErr(err)
	}
	if found {
		return 0, nil, "", fs.ErrExists
	}
	return dirInodeNum, dirInode, name, nil
}

func (f *FS) linkIntoDirectory(dirInodeNum uint32, dirInode *Inode, inodeNum uint32, name string, fileType uint8) error {
	if dirInode.Block[0] == 0 {
		blockNum, err := f.allocateBlock()
		if err != nil {
			return translateErr(err)
		}
		dirInode.Block[0] = uint32(blockNum)
		block := make([]byte, f.sb.BlockSize())
		initDirectoryBlock(block, inodeNum, name, fileType)
		if err := f.io.writeBlock(blockNum, block); err != nil {
			return translateErr(err)
		}
		return f.writeInode(dirInodeNum, dirInode)
	}

	block, err := f.io.readBlock(uint64(dirInode.Block[0]))
	if err != nil {
		return translateErr(err)
	}
	added, err := addDirEntry(block, inodeNum, name, fileType)
	if err != nil {
		return translateErr(err)
	}
	if !added {
		return fs.ErrFull
	}
	return f.io.writeBlock(uint64(dirInode.Block[0]), block)
}

// directoryIsEmpty reports whether dirInode's first block holds only
// the "." and ".." entries (§4.6's directory-not-empty failure case).
func (f *FS) directoryIsEmpty(dirInode *Inode) (bool, error) {
	block, err := f.firstBlock(dirInode)
	if err != nil {
		return false, err
	}
	for _, e := range scanDirEntries(block) {
		if e.Inode != 0 && e.Name != "." && e.Name != ".." {
			return false, nil
		}
	}
	return true, nil
}

// Truncate implements fs.Filesystem (§4.6 "Truncate"): shrinking
// updates the inode's reported size; truncating to the current size is
// a no-op. Releasing blocks beyond the new size is a documented
// extension point, matching the tested same-or-smaller case only.
func (f *FS) Truncate(path string, size uint64) error {
	inodeNum, inode, err := f.resolve(path)
	if err != nil {
		return translateErr(err)
	}
	if inode.IsDirectory() {
		return fs.ErrIsADir
	}
	if size == inode.Size() {
		return nil
	}
	if size > inode.Size() {
		return fs.ErrNotSupported
	}
	inode.SetSize(size)
	return translateErr(f.writeInode(inodeNum, inode))
}

// Remove implements fs.Filesystem: deletes the directory entry at path,
// then releases the target's data block and inode back to the bitmaps
// (§4.6 "Removing an entry", "Inode and block allocation"). Removing a
// non-empty directory fails with fs.ErrNotEmpty.
func (f *FS) Remove(path string) error {
	parts := splitPath(path)
	if len(parts) == 0 {
		return fs.ErrInvalidPath
	}
	dirPath := strings.Join(parts[:len(parts)-1], "/")
	name := parts[len(parts)-1]

	_, dirInode, err := f.resolve(dirPath)
	if err != nil {
		return translateErr(err)
	}
	targetInodeNum, found, err := f.lookupInDirectory(dirInode, name)
	if err != nil {
		return translateErr(err)
	}
	if !found {
		return fs.ErrNotFound
	}
	targetInode, err := f.readInode(targetInodeNum)
	if err != nil {
		return translateErr(err)
	}
	if targetInode.IsDirectory() {
		empty, err := f.directoryIsEmpty(targetInode)
		if err != nil {
			return translateErr(err)
		}
		if !empty {
			return fs.ErrNotEmpty
		}
	}

	block, err := f.firstBlock(dirInode)
	if err != nil {
		return translateErr(err)
	}
	if !removeDirEntry(block, name) {
		return fs.ErrNotFound
	}
	if err := f.io.writeBlock(uint64(dirInode.Block[0]), block); err != nil {
		return translateErr(err)
	}

	if err := f.freeInodeBlocks(targetInode); err != nil {
		return translateErr(err)
	}
	return translateErr(f.freeInode(targetInodeNum))
}

// translateErr maps an ext2-internal error to its fs.Filesystem sentinel,
// unwrapping through fmt.Errorf("%w: ...", ...) wrappers via errors.Is
// rather than comparing err by identity.
func translateErr(err error) error {
	switch {
	case errors.Is(err, ErrFileNotFound):
		return fs.ErrNotFound
	case errors.Is(err, ErrNotADirectory):
		return fs.ErrNotADir
	case errors.Is(err, ErrIsADirectory):
		return fs.ErrIsADir
	case errors.Is(err, ErrFilesystemFull):
		return fs.ErrFull
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrUnsupportedGroup), errors.Is(err, ErrMultiLevelExtent):
		return fs.ErrCorrupt
	case errors.Is(err, ErrInvalidPath):
		return fs.ErrInvalidPath
	case errors.Is(err, ErrNotWritable):
		return fs.ErrNotSupported
	case errors.Is(err, ErrFileExists):
		return fs.ErrExists
	case errors.Is(err, ErrDirNotEmpty):
		return fs.ErrNotEmpty
	case errors.Is(err, ErrNameTooLong):
		return fs.ErrNameTooLong
	case errors.Is(err, ErrInvalidSuperblock):
		return fs.ErrNotInitialized
	case errors.Is(err, ErrIO):
		return fs.ErrDevice
	default:
		return err
	}
}

var _ fs.Filesystem = (*FS)(nil)
