package trap

import (
	"fmt"
	"io"
)

// SyscallHandler is the seam onto the syscall dispatcher (internal/syscall),
// kept as an interface here so this package never imports syscall back.
type SyscallHandler interface {
	// Handle executes syscall number with the given six arguments and
	// returns the signed result plus a POSIX-style errno (0 on success).
	Handle(number uint64, args [6]uint64) (result int64, errno int)
}

// ExitStub identifies the fixed address the ELF loader places in the
// user stack as a return target: hitting EBREAK there (rather than
// crashing into it) means the program ran off its own entry point and
// exited cleanly (§4.4 "Breakpoint from exit-stub").
type ExitStub interface {
	// IsExitStub reports whether sepc matches the exit-stub address for
	// the currently running user program, if any.
	IsExitStub(sepc uint64) bool
}

// ExitSampler is sampled after every syscall; when a process has called
// exit, dispatch diverts into the shell entry instead of resuming user
// mode (§4.4 "A process-exit flag ... is sampled after every syscall").
type ExitSampler interface {
	ExitRequested() (code int, ok bool)
	ClearExit()
}

// Dispatcher routes a trapped Context to the right handler and reports
// whether the shell should be entered afterward.
type Dispatcher struct {
	Syscalls SyscallHandler
	Stub     ExitStub
	Exit     ExitSampler
	CrashLog io.Writer
}

// Outcome tells the caller (the assembly trampoline's Go-side stand-in)
// what to do after Dispatch returns.
type Outcome int

const (
	// OutcomeResumeUser returns to the trapped program via sret.
	OutcomeResumeUser Outcome = iota
	// OutcomeEnterShell diverts execution into the shell's entry point.
	OutcomeEnterShell
	// OutcomeHalt means a fatal fault was dumped; the machine should stop.
	OutcomeHalt
)

// Dispatch classifies ctx.Scause and routes it per §4.4's exception
// table. Interrupts are acknowledged and logged; there is no preemptive
// scheduler to hand control to.
func (d *Dispatcher) Dispatch(ctx *Context) Outcome {
	cause := ClassifyCause(ctx.Scause)

	if cause.Interrupt {
		d.logInterrupt(cause)
		return OutcomeResumeUser
	}

	switch {
	case cause.IsEnvCall():
		return d.dispatchSyscall(ctx)
	case cause.IsBreakpoint():
		if d.Stub != nil && d.Stub.IsExitStub(ctx.Sepc) {
			if d.Exit != nil {
				// The exit code itself was already recorded by the exit
				// syscall handler; entering the stub just confirms the
				// program ran off the end of its own code.
			}
			return OutcomeEnterShell
		}
		d.dumpAndHalt(ctx, "breakpoint")
		return OutcomeHalt
	case cause.IsAccessFault():
		d.dumpAndHalt(ctx, "access fault")
		return OutcomeHalt
	default:
		d.dumpAndHalt(ctx, "unhandled exception")
		return OutcomeHalt
	}
}

func (d *Dispatcher) dispatchSyscall(ctx *Context) Outcome {
	if d.Syscalls == nil {
		ctx.SetReturn(0, 38) // ENOSYS
		ctx.AdvancePC()
		return OutcomeResumeUser
	}

	number := ctx.SyscallNumber()
	var args [6]uint64
	for i := range args {
		args[i] = ctx.SyscallArg(i)
	}

	result, errno := d.Syscalls.Handle(number, args)
	ctx.SetReturn(result, errno)

	if d.Exit != nil {
		if _, exited := d.Exit.ExitRequested(); exited {
			d.Exit.ClearExit()
			return OutcomeEnterShell
		}
	}

	ctx.AdvancePC()
	return OutcomeResumeUser
}

func (d *Dispatcher) logInterrupt(cause Cause) {
	if d.CrashLog == nil {
		return
	}
	name := "unknown"
	switch cause.Code {
	case IntSupervisorTimer:
		name = "timer"
	case IntSupervisorExternal:
		name = "external"
	case IntSupervisorSoftware:
		name = "software"
	}
	fmt.Fprintf(d.CrashLog, "trap: %s interrupt acknowledged\n", name)
}

func (d *Dispatcher) dumpAndHalt(ctx *Context, reason string) {
	if d.CrashLog == nil {
		return
	}
	DumpCrashInfo(d.CrashLog, ctx, reason)
}
