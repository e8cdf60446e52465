package ext2

import "fmt"

// DirEntry is one parsed directory entry: inode(4) | rec_len(2) |
// name_len(1) | file_type(1) | name[name_len] | pad (§3 "directory
// entry", §4.6 "Directory entry layout").
type DirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string

	offset int // byte offset within the block this entry was read from
}

const dirEntryHeaderSize = 8
const maxDirEntryRecLen = 4096
const maxNameLen = 255 // ext2 NAME_LEN

// File-type hint values, matching ext2's d_file_type.
const (
	FileTypeUnknown  = 0
	FileTypeRegular  = 1
	FileTypeDirectory = 2
)

// align4 rounds n up to the next multiple of 4 (§4.6 "rec_len is always
// a multiple of 4").
func align4(n int) int { return (n + 3) &^ 3 }

// scanDirEntries walks a directory block's entries. It stops
// defensively on an entry with corrupt rec_len: zero, exceeding the
// block bounds, or greater than 4096 (§4.6 "Adding an entry").
func scanDirEntries(block []byte) []DirEntry {
	var entries []DirEntry
	offset := 0
	for offset+dirEntryHeaderSize <= len(block) {
		recLen := int(byteOrder.Uint16(block[offset+4 : offset+6]))
		if recLen == 0 || recLen > maxDirEntryRecLen || offset+recLen > len(block) {
			break
		}

		nameLen := int(block[offset+6])
		inode := byteOrder.Uint32(block[offset : offset+4])
		fileType := block[offset+7]

		var name string
		if dirEntryHeaderSize+nameLen <= recLen && offset+dirEntryHeaderSize+nameLen <= len(block) {
			name = string(block[offset+dirEntryHeaderSize : offset+dirEntryHeaderSize+nameLen])
		}

		entries = append(entries, DirEntry{
			Inode:    inode,
			RecLen:   uint16(recLen),
			NameLen:  uint8(nameLen),
			FileType: fileType,
			Name:     name,
			offset:   offset,
		})
		offset += recLen
	}
	return entries
}

func writeDirEntry(block []byte, offset int, inode uint32, recLen int, name string, fileType uint8) {
	byteOrder.PutUint32(block[offset:offset+4], inode)
	byteOrder.PutUint16(block[offset+4:offset+6], uint16(recLen))
	block[offset+6] = byte(len(name))
	block[offset+7] = fileType
	copy(block[offset+8:offset+8+len(name)], name)
}

// addDirEntry inserts name -> inodeNum into block, mutating it in
// place. It implements the deleted-entry-reuse and entry-split rules of
// §4.6 ("Adding an entry"); it returns false if no existing entry in
// the block offers enough room, in which case the caller must allocate
// a fresh block.
func addDirEntry(block []byte, inodeNum uint32, name string, fileType uint8) (bool, error) {
	if len(name) > maxNameLen {
		return false, ErrNameTooLong
	}
	required := align4(dirEntryHeaderSize + len(name))
	if required > len(block) {
		return false, fmt.Errorf("%w: name too long for one block", ErrCorrupt)
	}

	entries := scanDirEntries(block)
	for _, e := range entries {
		if e.Inode == 0 && int(e.RecLen) >= required {
			writeDirEntry(block, e.offset, inodeNum, int(e.RecLen), name, fileType)
			return true, nil
		}

		usedSize := align4(dirEntryHeaderSize + int(e.NameLen))
		if int(e.RecLen) >= usedSize+required {
			newOffset := e.offset + usedSize
			newRecLen := int(e.RecLen) - usedSize
			writeDirEntry(block, e.offset, e.Inode, usedSize, e.Name, e.FileType)
			writeDirEntry(block, newOffset, inodeNum, newRecLen, name, fileType)
			return true, nil
		}
	}
	return false, nil
}

// initDirectoryBlock zeroes block and writes a single entry spanning
// it whole, used when allocating a fresh directory block.
func initDirectoryBlock(block []byte, inodeNum uint32, name string, fileType uint8) {
	for i := range block {
		block[i] = 0
	}
	writeDirEntry(block, 0, inodeNum, len(block), name, fileType)
}

// initDirectoryBlockSelf zeroes block and writes the "." and ".."
// entries a freshly-allocated directory inode starts with (§4.6
// "Directory creation"). "." spans a fixed 12-byte record so "..", which
// follows it, can claim the rest of the block.
func initDirectoryBlockSelf(block []byte, selfInode, parentInode uint32) {
	for i := range block {
		block[i] = 0
	}
	const dotRecLen = 12 // align4(dirEntryHeaderSize + len("."))
	writeDirEntry(block, 0, selfInode, dotRecLen, ".", FileTypeDirectory)
	writeDirEntry(block, dotRecLen, parentInode, len(block)-dotRecLen, "..", FileTypeDirectory)
}

// removeDirEntry locates name by linear scan and zeroes its inode
// field, preserving rec_len so iteration still works (§4.6 "Removing an
// entry").
func removeDirEntry(block []byte, name string) bool {
	for _, e := range scanDirEntries(block) {
		if e.Inode != 0 && e.Name == name {
			byteOrder.PutUint32(block[e.offset:e.offset+4], 0)
			return true
		}
	}
	return false
}
