package kernel

import (
	"bytes"
	"testing"

	"github.com/elinos-go/elinos/internal/console"
	"github.com/elinos-go/elinos/internal/elf"
	"github.com/elinos-go/elinos/internal/fs"
	"github.com/elinos-go/elinos/internal/memory"
	"github.com/elinos-go/elinos/internal/process"
	"github.com/elinos-go/elinos/internal/syscall"
	"github.com/elinos-go/elinos/internal/trap"
)

// stubFS is an always-empty fs.Filesystem, enough to construct a
// syscall.Dispatcher for exec tests that never touch files.
type stubFS struct{}

func (stubFS) List(string) ([]fs.FileEntry, error) { return nil, fs.ErrNotFound }
func (stubFS) Stat(string) (fs.FileEntry, error)   { return fs.FileEntry{}, fs.ErrNotFound }
func (stubFS) ReadFile(string) ([]byte, error)      { return nil, fs.ErrNotFound }
func (stubFS) WriteFile(string, []byte) error       { return fs.ErrNotFound }
func (stubFS) Create(string) error                  { return nil }
func (stubFS) Mkdir(string) error                   { return nil }
func (stubFS) Truncate(string, uint64) error        { return fs.ErrNotFound }
func (stubFS) Remove(string) error                  { return fs.ErrNotFound }

// scriptedStepper replays a fixed sequence of trap states: each Step
// call overwrites ctx with the next entry, standing in for what a real
// fetch-decode-execute loop would have produced by the time it trapped.
type scriptedStepper struct {
	states []trap.Context
	i      int
}

func (s *scriptedStepper) Step(ctx *trap.Context) bool {
	if s.i >= len(s.states) {
		return false
	}
	*ctx = s.states[s.i]
	s.i++
	return true
}

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	alloc := newTestKernelAllocator(t)
	uart := console.New(&bytes.Buffer{}, bytes.NewReader(nil))
	procs := process.NewTable()
	syscalls := syscall.NewDispatcher(uart, stubFS{}, alloc, procs)

	return &Kernel{
		Alloc: alloc,
		Procs: procs,
		Dispatcher: &trap.Dispatcher{
			Syscalls: syscalls,
			Stub:     procs,
			Exit:     procs,
		},
	}
}

func newTestKernelAllocator(t *testing.T) *memory.Allocator {
	t.Helper()
	cfg := memory.NewConfig(256 * 1024 * 1024)
	layout := memory.NewLayout(0x8040_0000, 0x20_0000, cfg)
	arena := memory.NewArena(layout.HeapBase, layout.End-layout.HeapBase)
	return memory.NewAllocator(layout, cfg, arena)
}

// buildMinimalELFForExecTest hand-assembles a 64-byte Ehdr + 56-byte
// Phdr + code ELF64/RISC-V/EXEC image with a single PT_LOAD R+X
// segment. Its bytes never actually execute in these tests — the
// scriptedStepper supplies the trapped state directly — they only need
// to exist so Load accepts the segment.
func buildMinimalELFForExecTest(vaddr uint64, code []byte) []byte {
	const ehdrSize = 64
	const phdrSize = 56

	buf := make([]byte, ehdrSize+phdrSize+len(code))
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT

	putU16 := func(off int, v uint16) {
		buf[off], buf[off+1] = byte(v), byte(v>>8)
	}
	putU32 := func(off int, v uint32) {
		for i := 0; i < 4; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	putU64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}

	putU16(16, 2)      // e_type = ET_EXEC
	putU16(18, 0xF3)   // e_machine = EM_RISCV
	putU32(20, 1)      // e_version
	putU64(24, vaddr)  // e_entry
	putU64(32, ehdrSize) // e_phoff
	putU16(52, ehdrSize) // e_ehsize
	putU16(54, phdrSize) // e_phentsize
	putU16(56, 1)        // e_phnum

	ph := buf[ehdrSize : ehdrSize+phdrSize]
	putPh32 := func(off int, v uint32) {
		for i := 0; i < 4; i++ {
			ph[off+i] = byte(v >> (8 * i))
		}
	}
	putPh64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			ph[off+i] = byte(v >> (8 * i))
		}
	}
	putPh32(0, 1) // PT_LOAD
	putPh32(4, 5) // PF_R|PF_X
	putPh64(8, ehdrSize+phdrSize)
	putPh64(16, vaddr)
	putPh64(24, vaddr)
	putPh64(32, uint64(len(code)))
	putPh64(40, uint64(len(code)))

	copy(buf[ehdrSize+phdrSize:], code)
	return buf
}

func buildExitingProgram(t *testing.T, alloc *memory.Allocator) *elf.Loaded {
	t.Helper()
	code := []byte{0x93, 0x08, 0xd0, 0x05, 0x73, 0x00, 0x00, 0x00}
	data := buildMinimalELFForExecTest(0x1000, code)
	loaded, err := elf.Load(data, alloc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return loaded
}

func TestRunProcessSyscallExitPath(t *testing.T) {
	k := newTestKernel(t)
	loaded := buildExitingProgram(t, k.Alloc)

	var trapCtx trap.Context
	trapCtx.Scause = trap.ExcEnvCallFromUMode
	trapCtx.X[trap.RegA7] = 93 // sys_exit
	trapCtx.X[trap.RegA0] = 7  // exit code

	stepper := &scriptedStepper{states: []trap.Context{trapCtx}}
	exitCode, err := k.RunProcess(stepper, loaded)
	if err != nil {
		t.Fatalf("RunProcess: %v", err)
	}
	if exitCode != 7 {
		t.Fatalf("exitCode = %d, want 7", exitCode)
	}
}

func TestRunProcessStalledExecutionReturnsError(t *testing.T) {
	k := newTestKernel(t)
	loaded := buildExitingProgram(t, k.Alloc)

	stepper := &scriptedStepper{} // no states: Step returns false immediately
	if _, err := k.RunProcess(stepper, loaded); err != ErrExecutionStalled {
		t.Fatalf("err = %v, want ErrExecutionStalled", err)
	}
}

func TestRunProcessHaltsOnFatalTrap(t *testing.T) {
	k := newTestKernel(t)
	loaded := buildExitingProgram(t, k.Alloc)

	var trapCtx trap.Context
	trapCtx.Scause = trap.ExcLoadAccessFault
	trapCtx.Stval = 0xDEAD_BEEF

	stepper := &scriptedStepper{states: []trap.Context{trapCtx}}
	if _, err := k.RunProcess(stepper, loaded); err == nil {
		t.Fatalf("expected an error from a fatal trap")
	}
}
