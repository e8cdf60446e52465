package kernel

import (
	"errors"
	"fmt"

	"github.com/elinos-go/elinos/internal/elf"
	"github.com/elinos-go/elinos/internal/process"
	"github.com/elinos-go/elinos/internal/trap"
)

// ErrNoCPU is returned by RunELF when the kernel has no Stepper wired
// (a host build without a real or scripted execution backend).
var ErrNoCPU = errors.New("kernel: no execution backend configured")

// RunELF loads data as an ELF64 image and runs it to completion,
// implementing shell.ProgramExecutor so internal/shell never needs to
// import internal/elf or internal/process itself.
func (k *Kernel) RunELF(data []byte) (exitCode int, err error) {
	if k.CPU == nil {
		return 0, ErrNoCPU
	}
	loaded, err := elf.Load(data, k.Alloc)
	if err != nil {
		return 0, err
	}
	return k.RunProcess(k.CPU, loaded)
}

// Stepper is the execution boundary a real assembly trap vector and
// fetch-decode-execute loop would occupy. This repository models every
// piece of the kernel up to and including the initial trap.Context a
// loaded program starts with (internal/elf.Prepare) and everything that
// happens after a trap (trap.Dispatcher); the instruction stream that
// produces a trap from a running RISC-V program is the one piece Go
// cannot emit itself (no bare-metal S-mode entry code), so it is an
// interface here exactly the way internal/trap's SyscallHandler keeps
// the syscall table decoupled from dispatch. A real target supplies a
// Stepper that single-steps (or runs to completion in) real RISC-V
// code; tests supply one that plays back a scripted trap sequence.
type Stepper interface {
	// Step runs ctx from its current Sepc until the CPU traps, updating
	// ctx's GPRs and CSRs in place to reflect the trapped state. It
	// returns false if the CPU cannot make further progress (e.g. it
	// halted outside of any recognized trap), which RunProcess treats as
	// an execution error.
	Step(ctx *trap.Context) bool
}

// ErrExecutionStalled is returned when a Stepper reports it could not
// advance the program at all.
var ErrExecutionStalled = errors.New("kernel: program execution stalled")

// RunProcess spawns a child of the shell, prepares loaded's initial
// trap.Context (§4.7 "Execution"), and feeds every trap cpu produces
// through the kernel's trap.Dispatcher until it reports the shell
// should be re-entered or the machine should halt. It returns the
// child's exit code on a clean exit.
func (k *Kernel) RunProcess(cpu Stepper, loaded *elf.Loaded) (exitCode int, err error) {
	child := k.Procs.Spawn(process.ShellPID)

	prepared, err := elf.Prepare(loaded, k.Alloc)
	if err != nil {
		return 0, err
	}
	k.Procs.SetCurrent(child.PID, prepared.ExitStubAddr)
	ctx := prepared.Context

	for {
		if !cpu.Step(&ctx) {
			return 0, ErrExecutionStalled
		}

		switch k.Dispatcher.Dispatch(&ctx) {
		case trap.OutcomeResumeUser:
			continue
		case trap.OutcomeEnterShell:
			final, _ := k.Procs.Get(child.PID)
			return final.ExitCode, nil
		case trap.OutcomeHalt:
			return 0, fmt.Errorf("kernel: process %d halted on a fatal trap", child.PID)
		}
	}
}
