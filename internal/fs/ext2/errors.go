package ext2

import "errors"

// Errors surfaced by the ext2 implementation (§4.6, §7 "filesystem").
var (
	ErrFileNotFound     = errors.New("ext2: file not found")
	ErrNotADirectory    = errors.New("ext2: not a directory")
	ErrIsADirectory     = errors.New("ext2: is a directory")
	ErrCorrupt          = errors.New("ext2: corrupted filesystem")
	ErrFilesystemFull   = errors.New("ext2: filesystem full")
	ErrInvalidPath      = errors.New("ext2: invalid path")
	ErrUnsupportedGroup = errors.New("ext2: only block group 0 is supported")
	ErrMultiLevelExtent = errors.New("ext2: multi-level extent trees are not supported")
	ErrNotWritable      = errors.New("ext2: file is not writable (extent-addressed)")
	ErrFileExists       = errors.New("ext2: file exists")
	ErrDirNotEmpty      = errors.New("ext2: directory not empty")
	ErrNameTooLong      = errors.New("ext2: filename too long")
)
