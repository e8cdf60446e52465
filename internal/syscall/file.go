package syscall

import (
	"encoding/binary"
	"errors"

	"github.com/elinos-go/elinos/internal/fs"
)

const maxPathLen = 256

// Standard file descriptor numbers.
const (
	FDStdin  = 0
	FDStdout = 1
	FDStderr = 2
)

// handleFile services openat/close/read/write/unlinkat/fstat (§4.7
// "file I/O operations").
func (d *Dispatcher) handleFile(number uint64, args [6]uint64) (int64, int) {
	switch number {
	case SysOpenat:
		return d.sysOpenat(args[1], args[2])
	case SysClose:
		return d.sysClose(int(args[0]))
	case SysRead:
		return d.sysRead(int(args[0]), args[1], args[2])
	case SysWrite:
		return d.sysWrite(int(args[0]), args[1], args[2])
	case SysUnlinkat:
		return d.sysUnlinkat(args[1])
	case SysFstat:
		return d.sysFstat(int(args[0]), args[1])
	case SysTruncate:
		return d.sysTruncate(args[0], args[1])
	case SysFtruncate:
		return d.sysFtruncate(int(args[0]), args[1])
	case SysReadlinkat:
		return -1, ENOSYS
	default:
		return -1, ENOSYS
	}
}

func (d *Dispatcher) sysOpenat(pathPtr, flags uint64) (int64, int) {
	path, err := d.readArenaString(pathPtr, maxPathLen)
	if err != nil {
		return -1, EFAULT
	}

	const oCreat = 0o100
	if flags&oCreat != 0 {
		if _, err := d.FS.Stat(path); err != nil {
			if err := d.FS.Create(path); err != nil {
				return -1, translateFSErr(err)
			}
		}
	}
	if _, err := d.FS.Stat(path); err != nil {
		return -1, translateFSErr(err)
	}

	fd := d.nextFD
	d.nextFD++
	d.files[fd] = &openFile{path: path}
	return int64(fd), 0
}

func (d *Dispatcher) sysClose(fd int) (int64, int) {
	if fd <= FDStderr {
		return 0, 0
	}
	if _, ok := d.files[fd]; !ok {
		return -1, EBADF
	}
	delete(d.files, fd)
	return 0, 0
}

// sysRead reads the console for fd 0. For an opened file it re-reads the
// whole file from the filesystem, copies up to count bytes starting at
// the descriptor's cursor, and advances the cursor by that many bytes.
func (d *Dispatcher) sysRead(fd int, bufPtr, count uint64) (int64, int) {
	if fd == FDStdin {
		return d.readConsole(bufPtr, count)
	}
	f, ok := d.files[fd]
	if !ok {
		return -1, EBADF
	}
	data, err := d.FS.ReadFile(f.path)
	if err != nil {
		return -1, translateFSErr(err)
	}
	if f.offset >= int64(len(data)) {
		return 0, 0
	}
	remaining := data[f.offset:]
	n := uint64(len(remaining))
	if n > count {
		n = count
	}
	if err := d.Alloc.Arena().WriteAt(bufPtr, remaining[:n]); err != nil {
		return -1, EFAULT
	}
	f.offset += int64(n)
	return int64(n), 0
}

// maxConsoleSpins bounds the read(0,...) poll loop (§5 "spin with no
// timeout" — bounded here only so a test harness with no pending input
// cannot hang forever).
const maxConsoleSpins = 1 << 16

func (d *Dispatcher) readConsole(bufPtr, count uint64) (int64, int) {
	buf := make([]byte, 0, count)
	for uint64(len(buf)) < count {
		b, ok := d.Console.GetChar()
		if !ok {
			if len(buf) > 0 {
				break
			}
			for spins := 0; spins < maxConsoleSpins; spins++ {
				if b, ok = d.Console.GetChar(); ok {
					break
				}
			}
			if !ok {
				break
			}
		}
		buf = append(buf, b)
	}
	if len(buf) == 0 {
		return 0, 0
	}
	if err := d.Alloc.Arena().WriteAt(bufPtr, buf); err != nil {
		return -1, EFAULT
	}
	return int64(len(buf)), 0
}

// sysWrite walks the user-supplied pointer length bytes at a time and
// forwards each byte to the UART (§4.7 "Writing to standard output");
// writes to any other fd append to the backing file.
func (d *Dispatcher) sysWrite(fd int, bufPtr, count uint64) (int64, int) {
	data, err := d.Alloc.Arena().ReadAt(bufPtr, count)
	if err != nil {
		return -1, EFAULT
	}

	if fd == FDStdout || fd == FDStderr {
		for _, b := range data {
			d.Console.PutChar(b)
		}
		return int64(len(data)), 0
	}

	f, ok := d.files[fd]
	if !ok {
		return -1, EBADF
	}
	existing, _ := d.FS.ReadFile(f.path)
	combined := append(existing, data...)
	if err := d.FS.WriteFile(f.path, combined); err != nil {
		return -1, translateFSErr(err)
	}
	return int64(len(data)), 0
}

func (d *Dispatcher) sysUnlinkat(pathPtr uint64) (int64, int) {
	path, err := d.readArenaString(pathPtr, maxPathLen)
	if err != nil {
		return -1, EFAULT
	}
	if err := d.FS.Remove(path); err != nil {
		return -1, translateFSErr(err)
	}
	return 0, 0
}

func (d *Dispatcher) sysTruncate(pathPtr, length uint64) (int64, int) {
	path, err := d.readArenaString(pathPtr, maxPathLen)
	if err != nil {
		return -1, EFAULT
	}
	if err := d.FS.Truncate(path, length); err != nil {
		return -1, translateFSErr(err)
	}
	return 0, 0
}

func (d *Dispatcher) sysFtruncate(fd int, length uint64) (int64, int) {
	f, ok := d.files[fd]
	if !ok {
		return -1, EBADF
	}
	if err := d.FS.Truncate(f.path, length); err != nil {
		return -1, translateFSErr(err)
	}
	return 0, 0
}

// sysFstat writes a minimal 16-byte record (size, then a directory flag)
// at statPtr — this core has no notion of inode timestamps or
// permissions worth surfacing to user code.
func (d *Dispatcher) sysFstat(fd int, statPtr uint64) (int64, int) {
	f, ok := d.files[fd]
	if !ok {
		return -1, EBADF
	}
	entry, err := d.FS.Stat(f.path)
	if err != nil {
		return -1, translateFSErr(err)
	}
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], entry.Size)
	if entry.IsDir {
		buf[8] = 1
	}
	if err := d.Alloc.Arena().WriteAt(statPtr, buf); err != nil {
		return -1, EFAULT
	}
	return 0, 0
}

// translateFSErr maps the filesystem's sentinel errors to POSIX errno.
func translateFSErr(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotFound):
		return ENOENT
	case errors.Is(err, fs.ErrNotADir):
		return ENOTDIR
	case errors.Is(err, fs.ErrIsADir):
		return EISDIR
	case errors.Is(err, fs.ErrFull):
		return ENOSPC
	case errors.Is(err, fs.ErrInvalidPath):
		return EINVAL
	case errors.Is(err, fs.ErrNotSupported):
		return ENOSYS
	case errors.Is(err, fs.ErrExists):
		return EEXIST
	case errors.Is(err, fs.ErrNotEmpty):
		return ENOTEMPTY
	case errors.Is(err, fs.ErrNameTooLong):
		return ENAMETOOLONG
	case errors.Is(err, fs.ErrNotMounted), errors.Is(err, fs.ErrNotInitialized):
		return ENODEV
	default:
		return EIO
	}
}
