package trap

import (
	"fmt"
	"io"
)

// DumpCrashInfo prints the reason the trap was fatal, then the supervisor
// CSRs, then all 32 GPRs by ABI name, four per line.
func DumpCrashInfo(w io.Writer, ctx *Context, reason string) {
	fmt.Fprintf(w, "--- fatal trap: %s ---\n", reason)
	fmt.Fprintf(w, "scause=0x%016x sepc=0x%016x stval=0x%016x sstatus=0x%016x\n",
		ctx.Scause, ctx.Sepc, ctx.Stval, ctx.Sstatus)

	for row := 0; row < 32; row += 4 {
		for col := row; col < row+4 && col < 32; col++ {
			fmt.Fprintf(w, "%-4s=0x%016x  ", regNames[col], ctx.X[col])
		}
		fmt.Fprintln(w)
	}
}
