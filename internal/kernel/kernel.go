// Package kernel orchestrates the subsystems internal/trap, internal/mmu,
// internal/memory, internal/virtio, internal/fs/ext2 and internal/syscall
// wire together into: trap vector installed, physical allocator sized
// from the handoff descriptor, kernel address space built, VirtIO block
// device probed, filesystem mounted, shell entered (§4.2-§4.7, "On
// kernel entry the allocator reads the handoff descriptor...").
package kernel

import (
	"fmt"
	"io"

	"github.com/elinos-go/elinos/internal/boot"
	"github.com/elinos-go/elinos/internal/console"
	"github.com/elinos-go/elinos/internal/fs"
	"github.com/elinos-go/elinos/internal/fs/ext2"
	"github.com/elinos-go/elinos/internal/memory"
	"github.com/elinos-go/elinos/internal/mmu"
	"github.com/elinos-go/elinos/internal/process"
	"github.com/elinos-go/elinos/internal/sbi"
	"github.com/elinos-go/elinos/internal/syscall"
	"github.com/elinos-go/elinos/internal/trap"
	"github.com/elinos-go/elinos/internal/virtio"
)

// defaultVirtioAddrs is the fixed list of MMIO base addresses the
// block-device probe walks (§4.5 "probes a fixed list of MMIO base
// addresses"), matching QEMU virt's virtio-mmio transport window.
var defaultVirtioAddrs = []uint64{
	0x1000_1000, 0x1000_2000, 0x1000_3000, 0x1000_4000,
	0x1000_5000, 0x1000_6000, 0x1000_7000, 0x1000_8000,
}

// Kernel holds every process-wide mutable singleton the design notes
// call out (§9 "Multiple mutable singletons"): one UART, one block
// device, one filesystem, one process table, one address space. Each
// is guarded at its own boundary (UART by its own mutex, the process
// table by its own mutex); this struct just holds the one instance of
// each, it does not add another lock on top.
type Kernel struct {
	Console    *console.Console
	UART       *console.UART
	SBI        *sbi.Shim
	Alloc      *memory.Allocator
	AddrSpace  *mmu.AddressSpace
	Block      *virtio.BlockDevice
	FS         fs.Filesystem
	Procs      *process.Table
	Dispatcher *trap.Dispatcher
	Syscalls   *syscall.Dispatcher

	// CPU is the execution boundary RunProcess/RunELF hand a prepared
	// trap.Context to; see Stepper's doc comment in exec.go for why this
	// is an interface rather than a real fetch-decode-execute loop.
	CPU Stepper

	Handoff boot.Handoff
	Log     io.Writer
}

// Init builds every subsystem from a validated handoff descriptor and
// an already-constructed physical memory arena, exactly as the kernel's
// own entry point would (§4.1 "CPU state on kernel entry"). output is
// where the emulated UART's bytes land (a terminal, a test buffer, or
// the VT100 feed in cmd/elinosctl); input feeds the UART's receive
// side. disk backs the VirtIO block device's actual storage (an
// internal/hostdisk.Image in production, nil or a test double otherwise).
func Init(arena *memory.Arena, handoff boot.Handoff, output io.Writer, input io.Reader, diskAddrs []uint64, disk virtio.Backend) (*Kernel, error) {
	if !handoff.Valid() {
		return nil, fmt.Errorf("kernel: handoff descriptor has invalid magic")
	}

	uart := console.New(output, input)
	con := console.NewConsole(uart)
	shim := sbi.New(uart)

	cfg := memory.NewConfig(handoff.AvailableRAMSize)
	layout := memory.NewLayout(handoff.KernelBase, handoff.AvailableRAMStart-handoff.KernelBase, cfg)
	alloc := memory.NewAllocator(layout, cfg, arena)

	addrSpace, err := mmu.NewAddressSpace(alloc)
	if err != nil {
		return nil, fmt.Errorf("kernel: building address space: %w", err)
	}
	regions := mmu.KernelRegions{
		KernelBase: layout.KernelBase,
		KernelSize: layout.KernelEnd - layout.KernelBase,
		StackBase:  layout.GuardBase + memory.GuardPageSize,
		StackSize:  memory.PageSize,
		HeapBase:   layout.HeapBase,
		HeapSize:   layout.HeapSize,
		DeviceBase: console.Base,
	}
	deviceMapErr, err := mmu.SetupKernelMappings(addrSpace, regions)
	if err != nil {
		return nil, fmt.Errorf("kernel: mapping kernel regions: %w", err)
	}
	if deviceMapErr != nil {
		con.Printf("kernel: %v (continuing without device mapping)\n", deviceMapErr)
	}

	if diskAddrs == nil {
		diskAddrs = defaultVirtioAddrs
	}
	block, err := virtio.Open(alloc, diskAddrs, disk)
	if err != nil {
		return nil, fmt.Errorf("kernel: opening block device: %w", err)
	}

	filesystem, err := ext2.Mount(block)
	if err != nil {
		return nil, fmt.Errorf("kernel: mounting filesystem: %w", err)
	}

	procs := process.NewTable()
	syscalls := syscall.NewDispatcher(uart, filesystem, alloc, procs)

	dispatcher := &trap.Dispatcher{
		Syscalls: syscalls,
		Stub:     procs,
		Exit:     procs,
		CrashLog: output,
	}

	return &Kernel{
		Console:    con,
		UART:       uart,
		SBI:        shim,
		Alloc:      alloc,
		AddrSpace:  addrSpace,
		Block:      block,
		FS:         filesystem,
		Procs:      procs,
		Dispatcher: dispatcher,
		Syscalls:   syscalls,
		Handoff:    handoff,
		Log:        output,
	}, nil
}
