package syscall

// kernelName is written into uname's sysname field and reported by
// getversion.
const kernelName = "elinOS"

// handleSysinfo services uname/sysinfo and the elinOS-specific
// getsysinfo/getversion (§4.7 "system information").
func (d *Dispatcher) handleSysinfo(number uint64, args [6]uint64) (int64, int) {
	switch number {
	case SysUname:
		return d.writeFixedString(args[0], 65, kernelName)
	case SysSysinfo:
		if bufPtr := args[0]; bufPtr != 0 {
			d.Alloc.Arena().WriteAt(bufPtr, make([]byte, 64))
		}
		return 0, 0
	case SysGetSysInfo:
		return d.writeFixedString(args[0], 64, "elinOS riscv64 sv39")
	case SysGetVersion:
		return d.writeFixedString(args[0], 32, kernelName+" 0.1")
	default:
		return -1, ENOSYS
	}
}

func (d *Dispatcher) writeFixedString(bufPtr uint64, size int, s string) (int64, int) {
	if bufPtr == 0 {
		return 0, 0
	}
	buf := make([]byte, size)
	copy(buf, s)
	if err := d.Alloc.Arena().WriteAt(bufPtr, buf); err != nil {
		return -1, EFAULT
	}
	return 0, 0
}
