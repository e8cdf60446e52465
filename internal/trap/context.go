// Package trap implements exception and interrupt dispatch (§4.4): a
// single entry point classifies scause, routes exceptions to the
// syscall dispatcher or a crash dump, and samples the process-exit flag
// after every syscall to divert execution back into the shell.
package trap

// Context mirrors the trap frame the real assembly vector would save:
// all 31 general-purpose registers (x0/zero is never saved, by
// convention register 0 is left 0) plus the four supervisor CSRs a
// handler needs (§4.4 "saves all 31 GPRs and sstatus/sepc/stval/scause
// into a stack-allocated trap frame").
type Context struct {
	X [32]uint64 // X[0] unused, mirrors the real zero register

	Sstatus uint64
	Sepc    uint64
	Stval   uint64
	Scause  uint64
}

// ABI register name indices, for crash dumps (§4.4 supplemented
// feature: "dump all 32 GPRs by ABI name").
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegGP   = 3
	RegTP   = 4
	RegT0   = 5
	RegT1   = 6
	RegT2   = 7
	RegS0   = 8
	RegS1   = 9
	RegA0   = 10
	RegA1   = 11
	RegA2   = 12
	RegA3   = 13
	RegA4   = 14
	RegA5   = 15
	RegA6   = 16
	RegA7   = 17
	RegS2   = 18
	RegS3   = 19
	RegS4   = 20
	RegS5   = 21
	RegS6   = 22
	RegS7   = 23
	RegS8   = 24
	RegS9   = 25
	RegS10  = 26
	RegS11  = 27
	RegT3   = 28
	RegT4   = 29
	RegT5   = 30
	RegT6   = 31
)

// regNames gives the canonical ABI name for each register index, in
// the conventional crash-dump ordering (zero, ra, sp, gp, tp, t0-2,
// s0-1, a0-7, s2-11, t3-6).
var regNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// SyscallNumber returns a7: the call number extracted for dispatch.
func (c *Context) SyscallNumber() uint64 { return c.X[RegA7] }

// SyscallArg returns argument i (0-5) from a0..a5.
func (c *Context) SyscallArg(i int) uint64 { return c.X[RegA0+i] }

// SetReturn writes the signed syscall result back to a0, negating the
// magnitude on failure (§4.4 "writes the signed result back to a0
// (negated error code on failure)").
func (c *Context) SetReturn(value int64, errno int) {
	if errno != 0 {
		c.X[RegA0] = uint64(int64(-errno))
		return
	}
	c.X[RegA0] = uint64(value)
}

// AdvancePC advances sepc past the faulting ecall instruction (always
// 4 bytes in the non-compressed ISA subset this core targets).
func (c *Context) AdvancePC() { c.Sepc += 4 }
