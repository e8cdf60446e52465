package syscall

// POSIX errno values, Linux-compatible RISC-V64 generic numbering.
const (
	EPERM  = 1
	ENOENT = 2
	ESRCH  = 3
	EINTR  = 4
	EIO    = 5
	ENXIO  = 6
	E2BIG  = 7
	ENOEXEC = 8
	EBADF  = 9
	ECHILD = 10
	EAGAIN = 11
	ENOMEM = 12
	EACCES = 13
	EFAULT = 14
	EBUSY  = 16
	EEXIST = 17
	ENODEV = 19
	ENOTDIR = 20
	EISDIR = 21
	EINVAL = 22
	EMFILE = 24
	ENOSPC = 28
	ENAMETOOLONG = 36
	ENOSYS = 38
	ENOTEMPTY = 39
)
