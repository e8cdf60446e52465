package syscall

import (
	"github.com/elinos-go/elinos/internal/console"
	"github.com/elinos-go/elinos/internal/fs"
	"github.com/elinos-go/elinos/internal/memory"
	"github.com/elinos-go/elinos/internal/process"
)

// openFile is one entry in the dispatcher's per-instance file table. File
// descriptors are process-local in real Unix; this core runs one user
// program at a time (§5 "Single hart, cooperative"), so one table per
// Dispatcher is sufficient.
type openFile struct {
	path   string
	offset int64
	isDir  bool
}

// Dispatcher is the unified syscall entry point (§4.7): it partitions
// the number range by category and forwards to a handler method. It
// implements trap.SyscallHandler.
type Dispatcher struct {
	Console *console.UART
	FS      fs.Filesystem
	Alloc   *memory.Allocator
	Procs   *process.Table

	files  map[int]*openFile
	nextFD int
}

// NewDispatcher builds a dispatcher wired to the kernel's shared
// singletons (§5 "Multiple mutable singletons").
func NewDispatcher(con *console.UART, filesystem fs.Filesystem, alloc *memory.Allocator, procs *process.Table) *Dispatcher {
	return &Dispatcher{
		Console: con,
		FS:      filesystem,
		Alloc:   alloc,
		Procs:   procs,
		files:   make(map[int]*openFile),
		nextFD:  3, // 0, 1, 2 are stdin/stdout/stderr
	}
}

// Handle dispatches syscall number with six arguments, implementing
// trap.SyscallHandler. Unknown numbers return ENOSYS (§4.7).
func (d *Dispatcher) Handle(number uint64, args [6]uint64) (int64, int) {
	switch category(number) {
	case "file":
		return d.handleFile(number, args)
	case "directory":
		return d.handleDirectory(number, args)
	case "process":
		return d.handleProcess(number, args)
	case "memory":
		return d.handleMemory(number, args)
	case "device":
		return d.handleDevice(number, args)
	case "network":
		return d.handleNetwork(number, args)
	case "time":
		return d.handleTime(number, args)
	case "sysinfo":
		return d.handleSysinfo(number, args)
	case "elinos":
		return d.handleElinos(number, args)
	default:
		return -1, ENOSYS
	}
}

// readArenaString reads a NUL-terminated string of at most maxLen bytes
// starting at a physical address, the shape every path/buffer argument
// takes in this software-MMU core.
func (d *Dispatcher) readArenaString(addr uint64, maxLen int) (string, error) {
	raw, err := d.Alloc.Arena().ReadAt(addr, uint64(maxLen))
	if err != nil {
		return "", err
	}
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i]), nil
		}
	}
	return string(raw), nil
}
