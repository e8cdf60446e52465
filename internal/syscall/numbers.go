// Package syscall implements the Linux-numbered system call dispatcher
// (§4.7): a single entry point partitions the number range by category
// and forwards to a handler, returning ENOSYS for anything unassigned.
package syscall

// Linux RISC-V64 syscall numbers this core implements, matching the
// upstream asm-generic numbering.
const (
	SysGetcwd    = 17
	SysDup       = 23
	SysFcntl     = 25
	SysIoctl     = 29
	SysMkdirat   = 34
	SysUnlinkat  = 35
	SysTruncate  = 45
	SysFtruncate = 46
	SysChdir     = 49
	SysOpenat    = 56
	SysClose     = 57
	SysRead      = 63
	SysWrite     = 64
	SysReadlinkat = 78
	SysFstat     = 80
	SysExit      = 93
	SysExitGroup = 94
	SysWait4     = 260
	SysNanosleep = 101
	SysClockGettime = 113
	SysKill      = 129
	SysGetpid    = 172
	SysGetppid   = 173
	SysUname     = 160
	SysSysinfo   = 179
	SysSocket    = 198
	SysConnect   = 203
	SysBrk       = 214
	SysMunmap    = 215
	SysClone     = 220
	SysExecve    = 221
	SysMmap      = 222
)

// elinOS-private syscall numbers, 900-999, for ELF loading and
// diagnostics (§4.7 "additional private numbers in 900-999").
const (
	SysLoadELF    = 900
	SysExecELF    = 901
	SysElfInfo    = 902
	SysGetDevices = 950
	SysGetMemInfo = 960
	SysGetSysInfo = 970
	SysGetVersion = 971
)

// category names the range a syscall number belongs to, including the
// private numbers threaded into the device/memory/sysinfo categories
// alongside the elinOS-specific range.
func category(number uint64) string {
	switch {
	case number >= 23 && number <= 33 || number == 59 || number == SysGetDevices:
		return "device"
	case number == SysMkdirat || (number >= 49 && number <= 55):
		return "directory"
	case number == SysUnlinkat || (number >= 45 && number <= 47) ||
		(number >= 56 && number <= 64) || (number >= 78 && number <= 83):
		return "file"
	case (number >= 93 && number <= 100) || (number >= 129 && number <= 159) ||
		(number >= 172 && number <= 178) ||
		number == SysClone || number == SysExecve || number == SysWait4:
		return "process"
	case number >= 101 && number <= 115:
		return "time"
	case number >= 198 && number <= 213:
		return "network"
	case (number >= 214 && number <= 239) || number == SysGetMemInfo:
		return "memory"
	case (number >= 160 && number <= 171) || number == 179 || (number >= 970 && number <= 979):
		return "sysinfo"
	case (number >= 900 && number <= 949) || (number >= 980 && number <= 999):
		return "elinos"
	default:
		return "unknown"
	}
}
