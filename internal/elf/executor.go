package elf

import (
	"encoding/binary"

	"github.com/elinos-go/elinos/internal/memory"
	"github.com/elinos-go/elinos/internal/trap"
)

// userStackSize is the fixed stack given to every loaded program (§4.7
// "allocates an 8 KiB user stack").
const userStackSize = 8 * 1024

// exitStubSize covers the four 32-bit instructions written below.
const exitStubSize = 16

// sstatusUserMode sets SPIE=1 (interrupts re-enabled on sret) and
// SPP=0 (return to user mode).
const sstatusUserMode = 0x00000020

// exitStub is `li a7,93; ecall; ebreak; nop`, the four instructions a
// user program lands in when it returns instead of calling exit itself
// (§4.7 "writes the stub").
var exitStub = [4]uint32{
	0x05d00893, // addi a7, x0, 93
	0x00000073, // ecall
	0x00100073, // ebreak
	0x00000013, // nop
}

// Prepared is everything the kernel's CPU boundary needs to hand
// control to a loaded program: an initial trap frame plus the stack and
// exit-stub addresses the process table tracks to recognize a clean
// return (§4.7 "Execution").
type Prepared struct {
	Context      trap.Context
	StackBase    uint64
	StackTop     uint64
	ExitStubAddr uint64
}

// Prepare finds the segment containing loaded.Entry, allocates a user
// stack and an exit-stub page, writes the stub's instructions, and
// builds the initial register frame: sepc at the physical entry, sp at
// the stack top, ra at the exit stub, sstatus configured for user mode
// (§4.7 "configures the supervisor-status register for user mode ...
// sets sepc to the physical entry, loads the user stack into sp, loads
// the stub address into ra").
func Prepare(loaded *Loaded, alloc *memory.Allocator) (*Prepared, error) {
	seg, offset, err := loaded.entrySegment()
	if err != nil {
		return nil, err
	}
	physicalEntry := seg.PhysBase + offset

	stackBase, err := alloc.Allocate(userStackSize)
	if err != nil {
		return nil, ErrMemoryAllocation
	}
	stackTop := stackBase + userStackSize

	stubAddr, err := alloc.Allocate(exitStubSize)
	if err != nil {
		return nil, ErrMemoryAllocation
	}
	stubBytes := make([]byte, exitStubSize)
	for i, instr := range exitStub {
		binary.LittleEndian.PutUint32(stubBytes[i*4:i*4+4], instr)
	}
	if err := alloc.Arena().WriteAt(stubAddr, stubBytes); err != nil {
		return nil, err
	}

	var ctx trap.Context
	ctx.Sepc = physicalEntry
	ctx.Sstatus = sstatusUserMode
	ctx.X[trap.RegSP] = stackTop
	ctx.X[trap.RegRA] = stubAddr

	return &Prepared{
		Context:      ctx,
		StackBase:    stackBase,
		StackTop:     stackTop,
		ExitStubAddr: stubAddr,
	}, nil
}
