package trap

import (
	"bytes"
	"strings"
	"testing"
)

type stubSyscalls struct {
	result int64
	errno  int
	calls  int
}

func (s *stubSyscalls) Handle(number uint64, args [6]uint64) (int64, int) {
	s.calls++
	return s.result, s.errno
}

type stubExitStub struct{ addr uint64 }

func (s stubExitStub) IsExitStub(sepc uint64) bool { return sepc == s.addr }

type stubExitSampler struct {
	requested bool
	code      int
}

func (s *stubExitSampler) ExitRequested() (int, bool) { return s.code, s.requested }
func (s *stubExitSampler) ClearExit()                 { s.requested = false }

func TestDispatchEnvCallAdvancesPCAndWritesA0(t *testing.T) {
	d := &Dispatcher{Syscalls: &stubSyscalls{result: 42}}
	ctx := &Context{Scause: ExcEnvCallFromUMode, Sepc: 0x1000}
	outcome := d.Dispatch(ctx)

	if outcome != OutcomeResumeUser {
		t.Fatalf("expected OutcomeResumeUser, got %v", outcome)
	}
	if ctx.Sepc != 0x1004 {
		t.Fatalf("sepc not advanced: got 0x%x", ctx.Sepc)
	}
	if ctx.X[RegA0] != 42 {
		t.Fatalf("a0 = %d, want 42", ctx.X[RegA0])
	}
}

func TestDispatchSyscallErrorNegatesA0(t *testing.T) {
	d := &Dispatcher{Syscalls: &stubSyscalls{errno: 9}} // EBADF
	ctx := &Context{Scause: ExcEnvCallFromUMode}
	d.Dispatch(ctx)

	if int64(ctx.X[RegA0]) != -9 {
		t.Fatalf("a0 = %d, want -9", int64(ctx.X[RegA0]))
	}
}

func TestDispatchDivertsToShellOnExit(t *testing.T) {
	sampler := &stubExitSampler{requested: true, code: 0}
	d := &Dispatcher{Syscalls: &stubSyscalls{}, Exit: sampler}
	ctx := &Context{Scause: ExcEnvCallFromUMode}

	outcome := d.Dispatch(ctx)
	if outcome != OutcomeEnterShell {
		t.Fatalf("expected OutcomeEnterShell, got %v", outcome)
	}
	if sampler.requested {
		t.Fatalf("exit flag should have been cleared")
	}
}

func TestDispatchBreakpointAtExitStubEntersShell(t *testing.T) {
	d := &Dispatcher{Stub: stubExitStub{addr: 0x2000}}
	ctx := &Context{Scause: ExcBreakpoint, Sepc: 0x2000}

	if outcome := d.Dispatch(ctx); outcome != OutcomeEnterShell {
		t.Fatalf("expected OutcomeEnterShell, got %v", outcome)
	}
}

func TestDispatchBreakpointElsewhereHalts(t *testing.T) {
	var buf bytes.Buffer
	d := &Dispatcher{Stub: stubExitStub{addr: 0x2000}, CrashLog: &buf}
	ctx := &Context{Scause: ExcBreakpoint, Sepc: 0x9999}

	if outcome := d.Dispatch(ctx); outcome != OutcomeHalt {
		t.Fatalf("expected OutcomeHalt, got %v", outcome)
	}
	if !strings.Contains(buf.String(), "breakpoint") {
		t.Fatalf("expected crash dump to mention breakpoint, got %q", buf.String())
	}
}

func TestDispatchAccessFaultHaltsAndDumps(t *testing.T) {
	var buf bytes.Buffer
	d := &Dispatcher{CrashLog: &buf}
	ctx := &Context{Scause: ExcLoadAccessFault, X: [32]uint64{RegSP: 0x1234}}

	if outcome := d.Dispatch(ctx); outcome != OutcomeHalt {
		t.Fatalf("expected OutcomeHalt, got %v", outcome)
	}
	dump := buf.String()
	if !strings.Contains(dump, "sp") {
		t.Fatalf("expected dump to include sp register, got %q", dump)
	}
}

func TestDispatchTimerInterruptResumes(t *testing.T) {
	var buf bytes.Buffer
	d := &Dispatcher{CrashLog: &buf}
	ctx := &Context{Scause: interruptBit | IntSupervisorTimer}

	if outcome := d.Dispatch(ctx); outcome != OutcomeResumeUser {
		t.Fatalf("expected OutcomeResumeUser for interrupt, got %v", outcome)
	}
	if !strings.Contains(buf.String(), "timer") {
		t.Fatalf("expected interrupt log to mention timer, got %q", buf.String())
	}
}

func TestClassifyCause(t *testing.T) {
	c := ClassifyCause(interruptBit | IntSupervisorExternal)
	if !c.Interrupt || c.Code != IntSupervisorExternal {
		t.Fatalf("unexpected classification: %+v", c)
	}

	c2 := ClassifyCause(ExcEnvCallFromUMode)
	if c2.Interrupt || !c2.IsEnvCall() {
		t.Fatalf("unexpected classification: %+v", c2)
	}
}
