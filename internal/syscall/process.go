package syscall

import "encoding/binary"

// handleProcess services exit/exit_group/getpid/getppid/clone/wait4/kill
// (§4.7 "process management"). execve is ENOSYS here: a running user
// program cannot replace its own trap.Context through a syscall return
// value alone — new programs are loaded by the shell calling
// internal/elf directly before handing off a fresh context, never by a
// user program calling execve on itself.
func (d *Dispatcher) handleProcess(number uint64, args [6]uint64) (int64, int) {
	switch number {
	case SysExit, SysExitGroup:
		d.Procs.Exit(int(int32(args[0])))
		return 0, 0
	case SysGetpid:
		return int64(d.Procs.CurrentPID()), 0
	case SysGetppid:
		p, ok := d.Procs.Get(d.Procs.CurrentPID())
		if !ok {
			return -1, ESRCH
		}
		return int64(p.ParentPID), 0
	case SysClone:
		child := d.Procs.Fork(d.Procs.CurrentPID())
		return int64(child.PID), 0
	case SysWait4:
		pid, code, found := d.Procs.Wait4(d.Procs.CurrentPID())
		if !found {
			return -1, ECHILD
		}
		if statusPtr := args[1]; statusPtr != 0 {
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, uint32(code)<<8)
			d.Alloc.Arena().WriteAt(statusPtr, buf)
		}
		return int64(pid), 0
	case SysExecve:
		return -1, ENOSYS
	case SysKill:
		return -1, ENOSYS
	default:
		return -1, ENOSYS
	}
}
